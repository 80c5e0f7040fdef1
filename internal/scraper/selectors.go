package scraper

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SelectorSet is an insertion-ordered set of selectors. Not safe for concurrent use.
type SelectorSet struct {
	m *orderedmap.OrderedMap[string, struct{}]
}

// NewSelectorSet builds a set from selectors, dropping duplicates.
func NewSelectorSet(selectors ...string) *SelectorSet {
	s := &SelectorSet{m: orderedmap.New[string, struct{}]()}
	for _, sel := range selectors {
		s.Add(sel)
	}
	return s
}

// Add inserts selector unless it is already present. Reports whether it was added.
func (s *SelectorSet) Add(selector string) bool {
	if _, ok := s.m.Get(selector); ok {
		return false
	}
	s.m.Set(selector, struct{}{})
	return true
}

// Remove deletes selector if present. Reports whether it was removed.
func (s *SelectorSet) Remove(selector string) bool {
	_, ok := s.m.Delete(selector)
	return ok
}

// Snapshot returns the selectors in insertion order.
func (s *SelectorSet) Snapshot() []string {
	out := make([]string, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}
