package engine

import (
	"context"
	"strings"
	"time"
)

// Backend is the crawling/automation session the scrape coordinator drives.
// Implementations are not required to be safe for concurrent use.
type Backend interface {
	// Name returns the name of the backend implementation
	Name() string

	// Open loads url as the current document
	Open(ctx context.Context, url string) error

	// Wait blocks for d or until ctx is done
	Wait(ctx context.Context, d time.Duration) error

	// Scrape returns the text of the first element matching selector in the
	// current document. It returns ErrNoMatch when nothing matches.
	Scrape(ctx context.Context, selector string) (string, error)

	// HTML returns the serialized current document
	HTML(ctx context.Context) (string, error)

	// Close releases the session (browser process, connections)
	Close() error
}

// Factory constructs a Backend. It is the coordinator's only way to create one.
type Factory func(ctx context.Context) (Backend, error)

// Element is a located element as reported by a presence wait.
type Element struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
	HTML     string `json:"html,omitempty"`
}

// IsXPath reports whether selector should be evaluated as XPath rather than CSS.
func IsXPath(selector string) bool {
	s := strings.TrimSpace(selector)
	return strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "(") ||
		strings.HasPrefix(s, "..")
}

// Sleep waits for d unless ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
