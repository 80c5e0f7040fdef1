package downloader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/law-makers/scrapekit/pkg/models"
)

// LoadVideos reads a JSON array of video descriptors.
func LoadVideos(path string) ([]models.Video, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read video list: %w", err)
	}
	var videos []models.Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("failed to parse video list %s: %w", path, err)
	}
	return videos, nil
}

// SaveVideos writes videos as an indented JSON array, creating parent directories.
func SaveVideos(path string, videos []models.Video) error {
	if videos == nil {
		videos = []models.Video{}
	}
	data, err := json.MarshalIndent(videos, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode video list: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
