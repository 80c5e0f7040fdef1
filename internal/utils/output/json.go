package output

import (
	"encoding/json"
	"os"
	"time"

	"github.com/law-makers/scrapekit/internal/scraper"
)

type jsonExport struct {
	URL       string          `json:"url"`
	ScrapedAt time.Time       `json:"scraped_at"`
	Values    *scraper.Result `json:"values"`
}

// SaveJSON writes the result, keyed by selector in scrape order, to filepath.
func SaveJSON(r *scraper.Result, pageURL, filepath string) error {
	content, err := json.MarshalIndent(jsonExport{
		URL:       pageURL,
		ScrapedAt: time.Now().UTC(),
		Values:    r,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, content, 0644)
}
