// Package waiter blocks until an element is present in a live page.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/law-makers/scrapekit/internal/engine"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout is used when ForPresence is given a non-positive timeout.
const DefaultTimeout = 10 * time.Second

// Driver is a live page that can block until an element appears.
// WaitPresent must return once ctx is done.
type Driver interface {
	WaitPresent(ctx context.Context, selector string) (*engine.Element, error)
}

// Result is the outcome of a presence wait. Element is nil when the
// element did not appear in time; Diagnostic then says why.
type Result struct {
	Element    *engine.Element
	Diagnostic string
}

// Found reports whether the element appeared.
func (r Result) Found() bool { return r.Element != nil }

// ForPresence waits up to timeout for selector to be present in the driver's
// current page. A timeout is not an error: it yields an absent Result.
// Errors are returned only for an unusable driver or a cancelled parent context.
func ForPresence(ctx context.Context, d Driver, selector string, timeout time.Duration) (Result, error) {
	if d == nil {
		return Result{}, engine.NewEngineError(engine.ErrCodeDriver, "no driver", nil)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	el, err := d.WaitPresent(waitCtx, selector)
	switch {
	case err == nil && el != nil:
		log.Debug().
			Str("selector", selector).
			Dur("elapsed", time.Since(start)).
			Msg("Element present")
		return Result{Element: el}, nil

	case ctx.Err() != nil:
		return Result{}, ctx.Err()

	case err == nil, errors.Is(err, context.DeadlineExceeded), waitCtx.Err() != nil:
		diag := fmt.Sprintf("element %q not present after %s", selector, timeout)
		log.Warn().
			Str("selector", selector).
			Dur("timeout", timeout).
			Msg("Timed out waiting for element")
		return Result{Diagnostic: diag}, nil

	default:
		return Result{}, engine.NewEngineError(engine.ErrCodeDriver, "waiting for element", err).
			WithDetail("selector", selector)
	}
}
