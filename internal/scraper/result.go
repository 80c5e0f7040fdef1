package scraper

import (
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Value is what one selector produced during a scrape.
type Value struct {
	Text  string
	Found bool
	Err   error
}

// FoundValue builds a Value for a matched selector.
func FoundValue(text string) Value { return Value{Text: text, Found: true} }

// NotFound is recorded when the backend reports no match.
func NotFound() Value { return Value{} }

// Failed records a per-selector extraction error.
func Failed(err error) Value { return Value{Err: err} }

// String renders the value for console output.
func (v Value) String() string {
	switch {
	case v.Err != nil:
		return fmt.Sprintf("<error: %v>", v.Err)
	case !v.Found:
		return "<not found>"
	default:
		return v.Text
	}
}

// MarshalJSON encodes the value as {"value": ..., "found": ..., "error": ...}.
func (v Value) MarshalJSON() ([]byte, error) {
	out := struct {
		Value string `json:"value"`
		Found bool   `json:"found"`
		Error string `json:"error,omitempty"`
	}{Value: v.Text, Found: v.Found}
	if v.Err != nil {
		out.Error = v.Err.Error()
	}
	return json.Marshal(out)
}

// Result maps selector to Value in the order the selectors were scraped.
type Result struct {
	m *orderedmap.OrderedMap[string, Value]
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{m: orderedmap.New[string, Value]()}
}

// Set records the value for selector, keeping the original position on overwrite.
func (r *Result) Set(selector string, v Value) {
	r.m.Set(selector, v)
}

// Get returns the value recorded for selector.
func (r *Result) Get(selector string) (Value, bool) {
	return r.m.Get(selector)
}

// Len returns the number of entries.
func (r *Result) Len() int {
	return r.m.Len()
}

// Keys returns the selectors in insertion order.
func (r *Result) Keys() []string {
	keys := make([]string, 0, r.m.Len())
	for pair := r.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every entry in insertion order.
func (r *Result) Each(fn func(selector string, v Value)) {
	for pair := r.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// MarshalJSON encodes the result as a JSON object that preserves selector order.
func (r *Result) MarshalJSON() ([]byte, error) {
	return r.m.MarshalJSON()
}

// Format renders one "<selector>: <value>" line per entry.
func Format(r *Result) string {
	if r == nil {
		return ""
	}
	lines := make([]string, 0, r.Len())
	r.Each(func(selector string, v Value) {
		lines = append(lines, selector+": "+v.String())
	})
	return strings.Join(lines, "\n")
}
