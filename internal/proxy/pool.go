// Package proxy rotates backend start-ups across a list of proxies.
package proxy

import (
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long a failed proxy is skipped.
const DefaultCooldown = 5 * time.Minute

// Pool hands out proxies round-robin, skipping ones that failed recently.
type Pool struct {
	mu       sync.Mutex
	proxies  []string
	index    int
	failed   map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// Parse splits a comma-separated proxy list, dropping blanks.
func Parse(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewPool creates a Pool over proxies. An empty pool always yields "".
func NewPool(proxies []string) *Pool {
	return &Pool{
		proxies:  append([]string(nil), proxies...),
		failed:   make(map[string]time.Time),
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
}

// Len returns the number of proxies.
func (p *Pool) Len() int {
	return len(p.proxies)
}

// Next returns the next healthy proxy. When every proxy is cooling down
// the least recently failed one is returned.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	now := p.now()
	oldest, oldestAt := "", time.Time{}
	for range p.proxies {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		failedAt, ok := p.failed[proxy]
		if !ok || now.Sub(failedAt) >= p.cooldown {
			delete(p.failed, proxy)
			return proxy
		}
		if oldest == "" || failedAt.Before(oldestAt) {
			oldest, oldestAt = proxy, failedAt
		}
	}
	return oldest
}

// MarkFailed skips proxy for the cooldown period.
func (p *Pool) MarkFailed(proxy string) {
	if proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = p.now()
}

// MarkHealthy clears the failure status of proxy.
func (p *Pool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}
