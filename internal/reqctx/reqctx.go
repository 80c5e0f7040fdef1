// Package reqctx tags a command run with an ID for log correlation.
package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

type key struct{}

// Run identifies one command invocation.
type Run struct {
	ID    string
	Start time.Time
}

// Elapsed returns the time since the run started.
func (r *Run) Elapsed() time.Duration {
	return time.Since(r.Start)
}

// WithRun attaches a new Run to ctx.
func WithRun(ctx context.Context) (context.Context, *Run) {
	r := &Run{ID: newID(), Start: time.Now()}
	return context.WithValue(ctx, key{}, r), r
}

// FromContext returns the Run attached to ctx, if any.
func FromContext(ctx context.Context) (*Run, bool) {
	r, ok := ctx.Value(key{}).(*Run)
	return r, ok
}

func newID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
