package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/law-makers/scrapekit/internal/engine"
)

// Site describes what to scrape: one target URL and the selectors to query on it.
type Site struct {
	targetURL string
	selectors []string
}

// siteFile is the on-disk shape of a site document.
type siteFile struct {
	BaseURL string   `json:"base_url"`
	XPaths  []string `json:"xpaths"`
}

// NewSite builds a Site in memory.
func NewSite(targetURL string, selectors []string) *Site {
	s := &Site{targetURL: targetURL, selectors: []string{}}
	s.selectors = append(s.selectors, selectors...)
	return s
}

// LoadSite reads a JSON site document from path.
//
// Missing fields are not errors: base_url defaults to "" and xpaths to an
// empty list. URL and selector syntax are not checked here.
func LoadSite(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeConfigNotFound,
			fmt.Sprintf("cannot read %s", path), err)
	}

	var doc *siteFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeConfigParse,
			fmt.Sprintf("invalid JSON in %s", path), err)
	}
	if doc == nil {
		return nil, engine.NewEngineError(engine.ErrCodeConfigParse,
			fmt.Sprintf("%s does not contain a JSON object", path), nil)
	}

	return NewSite(doc.BaseURL, doc.XPaths), nil
}

// TargetURL returns the page to open, or "" when the document had none.
func (s *Site) TargetURL() string {
	return s.targetURL
}

// Selectors returns a copy of the configured selectors in document order.
func (s *Site) Selectors() []string {
	out := make([]string, len(s.selectors))
	copy(out, s.selectors)
	return out
}
