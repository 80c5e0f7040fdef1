package output

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/law-makers/scrapekit/internal/scraper"
)

// SaveCSV writes one row per selector: selector, value, found, error.
func SaveCSV(r *scraper.Result, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"selector", "value", "found", "error"}); err != nil {
		return err
	}

	var werr error
	r.Each(func(selector string, v scraper.Value) {
		if werr != nil {
			return
		}
		errText := ""
		if v.Err != nil {
			errText = v.Err.Error()
		}
		werr = writer.Write([]string{selector, v.Text, strconv.FormatBool(v.Found), errText})
	})
	if werr != nil {
		return werr
	}

	writer.Flush()
	return writer.Error()
}
