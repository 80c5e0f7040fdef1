// Package output writes scrape results to disk.
package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/law-makers/scrapekit/internal/scraper"
)

// Save picks the writer from the file extension (.json, .csv, .md).
func Save(r *scraper.Result, pageURL, path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return SaveJSON(r, pageURL, path)
	case ".csv":
		return SaveCSV(r, path)
	case ".md", ".markdown":
		return SaveMarkdown(r, pageURL, path)
	default:
		return fmt.Errorf("unsupported output format %q (use .json, .csv or .md)", ext)
	}
}
