// Package models holds the records shared between the scraper, the
// downloader and the download-manager hand-off.
package models

// Video describes one downloadable video discovered on a page.
type Video struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail_url,omitempty"`
	DownloadURL string `json:"download_url"`
}

// Downloadable reports whether the record carries a download URL.
func (v Video) Downloadable() bool {
	return v.DownloadURL != ""
}
