// Package ratelimit spaces out requests to the same host.
package ratelimit

import (
	"context"
	"sync"

	urlutil "github.com/law-makers/scrapekit/internal/utils/url"
	"golang.org/x/time/rate"
)

// DomainLimiter keeps one token bucket per host.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
	burst    int
}

// NewDomainLimiter creates a limiter allowing requestsPerSecond per host.
// Non-positive values fall back to 2 rps with a burst of 4.
func NewDomainLimiter(requestsPerSecond float64, burst int) *DomainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	if burst <= 0 {
		burst = 4
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until a request to urlStr's host may proceed.
// URLs without a host are not limited; they fail later at request time.
func (dl *DomainLimiter) Wait(ctx context.Context, urlStr string) error {
	host := urlutil.Host(urlStr)
	if host == "" {
		return nil
	}
	return dl.limiter(host).Wait(ctx)
}

// Allow reports whether a request to urlStr's host may proceed right now.
func (dl *DomainLimiter) Allow(urlStr string) bool {
	host := urlutil.Host(urlStr)
	if host == "" {
		return true
	}
	return dl.limiter(host).Allow()
}

func (dl *DomainLimiter) limiter(host string) *rate.Limiter {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	l, ok := dl.limiters[host]
	if !ok {
		l = rate.NewLimiter(dl.perHost, dl.burst)
		dl.limiters[host] = l
	}
	return l
}
