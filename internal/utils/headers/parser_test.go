package headers

import (
	"net/http"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	out, err := Parse([]string{"User-Agent: Bot", "accept: text/html", "X-Token: a:b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Get("User-Agent") != "Bot" || out.Get("Accept") != "text/html" {
		t.Fatalf("unexpected parse result: %#v", out)
	}
	if out.Get("X-Token") != "a:b" {
		t.Fatalf("value containing a colon was split: %q", out.Get("X-Token"))
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"BadHeader", ": novalue"} {
		if _, err := Parse([]string{in}); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestApplyAndFlatten(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Accept", "*/*")

	h := http.Header{}
	h.Set("Accept", "text/html")
	h.Set("Referer", "http://example.com/")
	Apply(req, h)

	if req.Header.Get("Accept") != "text/html" {
		t.Fatalf("existing header not replaced: %q", req.Header.Get("Accept"))
	}

	want := map[string]string{"Accept": "text/html", "Referer": "http://example.com/"}
	if got := Flatten(h); !reflect.DeepEqual(got, want) {
		t.Fatalf("Flatten = %#v, want %#v", got, want)
	}
}
