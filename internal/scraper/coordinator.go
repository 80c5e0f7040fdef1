// Package scraper runs a site's selectors against a lazily created backend.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/law-makers/scrapekit/internal/config"
	"github.com/law-makers/scrapekit/internal/engine"
	"github.com/law-makers/scrapekit/internal/retry"
	urlutil "github.com/law-makers/scrapekit/internal/utils/url"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Coordinator owns a selector set and the backend session used to scrape it.
//
// The backend is created on first use and reused until Close. Methods are
// safe to call from multiple goroutines; scrapes are serialized.
type Coordinator struct {
	site      *config.Site
	factory   engine.Factory
	readiness Readiness
	retry     retry.Config
	logger    zerolog.Logger

	mu        sync.Mutex
	selectors *SelectorSet
	backend   engine.Backend
	closed    bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithReadiness sets the post-navigation readiness strategy.
func WithReadiness(r Readiness) Option {
	return func(c *Coordinator) { c.readiness = r }
}

// WithRetry sets the retry policy for backend construction and navigation.
func WithRetry(cfg retry.Config) Option {
	return func(c *Coordinator) { c.retry = cfg }
}

// WithLogger sets the logger used for progress messages.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a Coordinator for site. No backend is created until it is needed.
func New(site *config.Site, factory engine.Factory, opts ...Option) *Coordinator {
	if site == nil {
		site = config.NewSite("", nil)
	}
	c := &Coordinator{
		site:      site,
		factory:   factory,
		readiness: Poll{Interval: config.DefaultPollInterval, Attempts: config.DefaultPollAttempts},
		retry:     retry.Once(),
		logger:    log.Logger,
		selectors: NewSelectorSet(site.Selectors()...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddSelector adds s to the selector set. Adding a present selector is a no-op.
func (c *Coordinator) AddSelector(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectors.Add(s) {
		c.logger.Debug().Str("selector", s).Msg("Selector added")
	}
}

// RemoveSelector removes s from the selector set. Removing an absent selector is a no-op.
func (c *Coordinator) RemoveSelector(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectors.Remove(s) {
		c.logger.Debug().Str("selector", s).Msg("Selector removed")
	}
}

// Selectors returns the current selectors in insertion order.
func (c *Coordinator) Selectors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectors.Snapshot()
}

// EnsureBackend returns the backend, creating it on first call.
// A failed creation leaves no backend behind, so the next call tries again.
func (c *Coordinator) EnsureBackend(ctx context.Context) (engine.Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureBackendLocked(ctx)
}

func (c *Coordinator) ensureBackendLocked(ctx context.Context) (engine.Backend, error) {
	if c.closed {
		return nil, engine.NewEngineError(engine.ErrCodeClosed, "coordinator is closed", nil)
	}
	if c.backend != nil {
		return c.backend, nil
	}
	if c.factory == nil {
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "no backend factory configured", nil)
	}

	start := time.Now()
	var b engine.Backend
	err := retry.WithRetry(ctx, c.retry, func() error {
		var ferr error
		b, ferr = c.factory(ctx)
		return ferr
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to start backend")
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to start backend", err).WithRetry()
	}
	if b == nil {
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "backend factory returned nothing", nil).WithRetry()
	}

	c.backend = b
	c.logger.Info().
		Str("backend", b.Name()).
		Dur("elapsed", time.Since(start)).
		Msg("Backend ready")
	return b, nil
}

// Scrape opens the site's target URL, waits for readiness and extracts every
// selector once. Per-selector failures are recorded in the result; only
// backend start-up and navigation failures are returned as errors.
func (c *Coordinator) Scrape(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.ensureBackendLocked(ctx)
	if err != nil {
		return nil, err
	}

	target := c.site.TargetURL()
	if target == "" {
		return nil, engine.NewEngineError(engine.ErrCodeNavigation, "site has no base_url", nil)
	}
	if err := urlutil.ValidateURL(target); err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeNavigation, "invalid target URL", err).
			WithDetail("url", target)
	}

	start := time.Now()
	err = retry.WithRetry(ctx, c.retry, func() error {
		return b.Open(ctx, target)
	})
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeNavigation, fmt.Sprintf("failed to load %s", target), err).
			WithDetail("url", target)
	}
	c.logger.Debug().Str("url", target).Dur("elapsed", time.Since(start)).Msg("Page opened")

	selectors := c.selectors.Snapshot()

	if c.readiness != nil {
		if err := c.readiness.Ready(ctx, b, selectors); err != nil {
			return nil, fmt.Errorf("waiting for page readiness: %w", err)
		}
	}

	result := NewResult()
	for _, sel := range selectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := b.Scrape(ctx, sel)
		switch {
		case err == nil:
			result.Set(sel, FoundValue(text))
		case errors.Is(err, engine.ErrNoMatch):
			c.logger.Debug().Str("selector", sel).Msg("Selector matched nothing")
			result.Set(sel, NotFound())
		default:
			c.logger.Warn().Err(err).Str("selector", sel).Msg("Selector extraction failed")
			result.Set(sel, Failed(err))
		}
	}

	c.logger.Info().
		Str("url", target).
		Int("selectors", len(selectors)).
		Dur("elapsed", time.Since(start)).
		Msg("Scrape completed")

	return result, nil
}

// Close releases the backend. The coordinator cannot be used afterwards.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.backend == nil {
		return nil
	}
	err := c.backend.Close()
	c.backend = nil
	if err != nil {
		c.logger.Warn().Err(err).Msg("Error closing backend")
		return fmt.Errorf("closing backend: %w", err)
	}
	c.logger.Debug().Msg("Backend closed")
	return nil
}
