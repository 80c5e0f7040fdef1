package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/law-makers/scrapekit/internal/engine"
)

func writeSite(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write site file: %v", err)
	}
	return path
}

func TestLoadSite_Full(t *testing.T) {
	path := writeSite(t, `{"base_url": "https://example.com", "xpaths": ["//a", "//img"]}`)

	site, err := LoadSite(path)
	if err != nil {
		t.Fatalf("LoadSite failed: %v", err)
	}

	if site.TargetURL() != "https://example.com" {
		t.Errorf("Expected target URL 'https://example.com', got '%s'", site.TargetURL())
	}
	want := []string{"//a", "//img"}
	if !reflect.DeepEqual(site.Selectors(), want) {
		t.Errorf("Expected selectors %v, got %v", want, site.Selectors())
	}
}

func TestLoadSite_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		url     string
	}{
		{"no xpaths", `{"base_url": "https://example.com"}`, "https://example.com"},
		{"empty object", `{}`, ""},
		{"unknown fields", `{"title": "x", "xpaths": []}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site, err := LoadSite(writeSite(t, tt.content))
			if err != nil {
				t.Fatalf("LoadSite failed: %v", err)
			}
			if site.TargetURL() != tt.url {
				t.Errorf("Expected target URL %q, got %q", tt.url, site.TargetURL())
			}
			if sel := site.Selectors(); sel == nil || len(sel) != 0 {
				t.Errorf("Expected empty non-nil selectors, got %#v", sel)
			}
		})
	}
}

func TestLoadSite_NotFound(t *testing.T) {
	_, err := LoadSite(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, engine.ErrConfigNotFound) {
		t.Fatalf("Expected ErrConfigNotFound, got %v", err)
	}

	_, err = LoadSite(t.TempDir())
	if !errors.Is(err, engine.ErrConfigNotFound) {
		t.Fatalf("Expected ErrConfigNotFound for a directory, got %v", err)
	}
}

func TestLoadSite_ParseError(t *testing.T) {
	inputs := []string{
		`{"base_url": `,
		`not json`,
		`["//a"]`,
		`null`,
		`{"xpaths": "//a"}`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := LoadSite(writeSite(t, in))
			if !errors.Is(err, engine.ErrConfigParse) {
				t.Errorf("Expected ErrConfigParse, got %v", err)
			}
		})
	}
}

func TestSite_SelectorsIsCopy(t *testing.T) {
	site := NewSite("https://example.com", []string{"//a"})
	sel := site.Selectors()
	sel[0] = "//changed"

	if site.Selectors()[0] != "//a" {
		t.Error("mutating the returned slice must not change the site")
	}
}
