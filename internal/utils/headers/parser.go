package headers

import (
	"fmt"
	"net/http"
	"strings"
)

// Parse converts "Key: Value" strings, as given on the command line, into
// an http.Header. Entries without a colon or with an empty key are rejected.
func Parse(h []string) (http.Header, error) {
	out := make(http.Header, len(h))
	for _, hdr := range h {
		key, value, ok := strings.Cut(hdr, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed header %q: expected \"Key: Value\"", hdr)
		}
		out.Add(key, strings.TrimSpace(value))
	}
	return out, nil
}

// Apply copies every header in h onto req, replacing existing values.
func Apply(req *http.Request, h http.Header) {
	for k, vs := range h {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// Flatten returns the first value of every header, for storage in a session.
func Flatten(h http.Header) map[string]string {
	m := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			m[k] = vs[0]
		}
	}
	return m
}
