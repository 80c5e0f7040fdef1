package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/law-makers/scrapekit/internal/engine"
	"github.com/law-makers/scrapekit/internal/retry"
	"github.com/rs/zerolog/log"
)

// Readiness decides when a freshly opened page is ready to be scraped.
type Readiness interface {
	Ready(ctx context.Context, b engine.Backend, selectors []string) error
}

// FixedDelay waits unconditionally after navigation.
type FixedDelay struct {
	Delay time.Duration
}

// Ready implements Readiness.
func (f FixedDelay) Ready(ctx context.Context, b engine.Backend, _ []string) error {
	log.Debug().Dur("delay", f.Delay).Msg("Waiting fixed delay before scraping")
	return b.Wait(ctx, f.Delay)
}

// Poll probes the page until at least one selector matches, backing off
// between probes. Running out of attempts is not an error: the scrape goes
// ahead and unmatched selectors are reported as not found.
type Poll struct {
	Interval time.Duration
	Attempts int
}

var errNotReady = errors.New("no selector matched yet")

// Ready implements Readiness.
func (p Poll) Ready(ctx context.Context, b engine.Backend, selectors []string) error {
	if len(selectors) == 0 {
		return nil
	}

	cfg := retry.Config{
		MaxAttempts:    p.Attempts,
		InitialBackoff: p.Interval,
		MaxBackoff:     4 * p.Interval,
		Multiplier:     1.5,
		Quiet:          true,
	}

	err := retry.WithRetry(ctx, cfg, func() error {
		for _, sel := range selectors {
			_, err := b.Scrape(ctx, sel)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return retry.Stop(ctx.Err())
			}
		}
		return errNotReady
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotReady):
		log.Warn().
			Int("attempts", p.Attempts).
			Msg("Page readiness not confirmed, scraping anyway")
		return nil
	default:
		return err
	}
}
