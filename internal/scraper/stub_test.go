package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/law-makers/scrapekit/internal/engine"
)

// stubBackend serves canned selector values and records calls.
type stubBackend struct {
	mu sync.Mutex

	values  map[string]string
	errs    map[string]error
	openErr error

	opened    []string
	scraped   []string
	waits     []time.Duration
	closed    int
	closeErr  error
	readyFrom int // Scrape reports no match until this many calls have been made
	calls     int
}

func newStub(values map[string]string) *stubBackend {
	return &stubBackend{values: values, errs: map[string]error{}}
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Open(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, url)
	return s.openErr
}

func (s *stubBackend) Wait(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *stubBackend) Scrape(_ context.Context, selector string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.scraped = append(s.scraped, selector)
	if s.calls <= s.readyFrom {
		return "", engine.ErrNoMatch
	}
	if err, ok := s.errs[selector]; ok {
		return "", err
	}
	if v, ok := s.values[selector]; ok {
		return v, nil
	}
	return "", engine.NewEngineError(engine.ErrCodeNoMatch, "no element matches "+selector, nil)
}

func (s *stubBackend) HTML(context.Context) (string, error) { return "<html></html>", nil }

func (s *stubBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return s.closeErr
}

// countingFactory hands out b and counts invocations. The first failures
// calls return an error.
type countingFactory struct {
	mu       sync.Mutex
	b        engine.Backend
	calls    int
	failures int
}

func (f *countingFactory) New(context.Context) (engine.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("chrome not found")
	}
	return f.b, nil
}
