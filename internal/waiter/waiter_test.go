package waiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/law-makers/scrapekit/internal/engine"
)

type blockingDriver struct{}

func (blockingDriver) WaitPresent(ctx context.Context, _ string) (*engine.Element, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type presentDriver struct{ after time.Duration }

func (p presentDriver) WaitPresent(ctx context.Context, selector string) (*engine.Element, error) {
	select {
	case <-time.After(p.after):
		return &engine.Element{Selector: selector, Text: "ready"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type brokenDriver struct{ err error }

func (b brokenDriver) WaitPresent(context.Context, string) (*engine.Element, error) {
	return nil, b.err
}

func TestForPresenceFound(t *testing.T) {
	res, err := ForPresence(context.Background(), presentDriver{after: 5 * time.Millisecond}, "#app", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Found() || res.Element.Text != "ready" {
		t.Fatalf("expected element, got %+v", res)
	}
}

func TestForPresenceTimeoutIsAbsence(t *testing.T) {
	start := time.Now()
	res, err := ForPresence(context.Background(), blockingDriver{}, "//div[@id='never']", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("timeout must not be an error, got %v", err)
	}
	if res.Found() {
		t.Fatal("expected absent result")
	}
	if !strings.Contains(res.Diagnostic, "never") {
		t.Fatalf("diagnostic should name the selector: %q", res.Diagnostic)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("wait did not respect the timeout: %s", elapsed)
	}
}

func TestForPresenceParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ForPresence(ctx, blockingDriver{}, "#app", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestForPresenceDriverFailure(t *testing.T) {
	_, err := ForPresence(context.Background(), brokenDriver{err: errors.New("target closed")}, "#app", time.Second)
	if !errors.Is(err, engine.ErrDriver) {
		t.Fatalf("expected ErrDriver, got %v", err)
	}
}

func TestForPresenceNilDriver(t *testing.T) {
	_, err := ForPresence(context.Background(), nil, "#app", time.Second)
	if !errors.Is(err, engine.ErrDriver) {
		t.Fatalf("expected ErrDriver, got %v", err)
	}
}

func TestForPresenceDefaultTimeout(t *testing.T) {
	var got time.Duration
	d := deadlineDriver{seen: &got}
	if _, err := ForPresence(context.Background(), d, "#app", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got <= DefaultTimeout-time.Second || got > DefaultTimeout {
		t.Fatalf("expected a deadline near %s, got %s", DefaultTimeout, got)
	}
}

type deadlineDriver struct{ seen *time.Duration }

func (d deadlineDriver) WaitPresent(ctx context.Context, selector string) (*engine.Element, error) {
	if dl, ok := ctx.Deadline(); ok {
		*d.seen = time.Until(dl)
	}
	return &engine.Element{Selector: selector}, nil
}
