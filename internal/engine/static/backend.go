// Package static is a browserless backend: pages are fetched over HTTP and
// queried in memory. It cannot run page scripts.
package static

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/law-makers/scrapekit/internal/cache"
	"github.com/law-makers/scrapekit/internal/engine"
	"github.com/law-makers/scrapekit/internal/ratelimit"
	"github.com/law-makers/scrapekit/internal/retry"
	"github.com/law-makers/scrapekit/internal/utils/headers"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

const maxBodyBytes = 16 << 20

// Options configures a Backend. Zero values get usable defaults.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	Proxy        string
	Headers      http.Header
	Cookies      []*http.Cookie
	Limiter      *ratelimit.DomainLimiter
	Cache        *cache.MemoryCache
	Retry        retry.Config
	PollInterval time.Duration
}

// Backend fetches documents with net/http.
type Backend struct {
	opts   Options
	client *http.Client

	url string
	doc *html.Node
}

// New creates a static backend.
func New(opts Options) (*Backend, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Once()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to create cookie jar", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "invalid proxy URL", err).
				WithDetail("proxy", opts.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Backend{
		opts: opts,
		client: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   opts.Timeout,
		},
	}, nil
}

// Name implements engine.Backend.
func (b *Backend) Name() string { return "static" }

// Open fetches url and makes it the current document.
func (b *Backend) Open(ctx context.Context, rawURL string) error {
	body, err := b.fetch(ctx, rawURL, true)
	if err != nil {
		return err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	b.url = rawURL
	b.doc = doc
	return nil
}

// Wait is a no-op beyond honouring ctx: a fetched document never changes.
func (b *Backend) Wait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Scrape implements engine.Backend.
func (b *Backend) Scrape(_ context.Context, selector string) (string, error) {
	if b.doc == nil {
		return "", engine.NewEngineError(engine.ErrCodeExtraction, "no document loaded", nil)
	}
	n, err := findFirst(b.doc, selector)
	if err != nil {
		return "", err
	}
	return nodeText(n), nil
}

// HTML implements engine.Backend.
func (b *Backend) HTML(_ context.Context) (string, error) {
	if b.doc == nil {
		return "", engine.NewEngineError(engine.ErrCodeExtraction, "no document loaded", nil)
	}
	return render(b.doc), nil
}

// WaitPresent re-fetches the current URL until selector matches or ctx is done.
func (b *Backend) WaitPresent(ctx context.Context, selector string) (*engine.Element, error) {
	if b.url == "" {
		return nil, engine.NewEngineError(engine.ErrCodeDriver, "no page open", nil)
	}

	for {
		if b.doc != nil {
			n, err := findFirst(b.doc, selector)
			if err == nil {
				return &engine.Element{Selector: selector, Text: nodeText(n), HTML: render(n)}, nil
			}
			if !isNoMatch(err) {
				return nil, err
			}
		}

		if err := engine.Sleep(ctx, b.opts.PollInterval); err != nil {
			return nil, err
		}

		body, err := b.fetch(ctx, b.url, false)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Debug().Err(err).Str("url", b.url).Msg("Refetch failed while waiting")
			continue
		}
		doc, err := html.Parse(bytes.NewReader(body))
		if err != nil {
			continue
		}
		b.doc = doc
	}
}

// Close implements engine.Backend.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	b.doc = nil
	return nil
}

func (b *Backend) fetch(ctx context.Context, rawURL string, useCache bool) ([]byte, error) {
	if useCache && b.opts.Cache != nil {
		if page, ok := b.opts.Cache.Get(rawURL); ok {
			return page.Body, nil
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if len(b.opts.Cookies) > 0 {
		b.client.Jar.SetCookies(parsed, b.opts.Cookies)
	}

	start := time.Now()
	var body []byte
	err = retry.WithRetry(ctx, b.opts.Retry, func() error {
		if b.opts.Limiter != nil {
			if err := b.opts.Limiter.Wait(ctx, rawURL); err != nil {
				return retry.Stop(err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return retry.Stop(err)
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		if b.opts.UserAgent != "" {
			req.Header.Set("User-Agent", b.opts.UserAgent)
		}
		headers.Apply(req, b.opts.Headers)

		resp, err := b.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return retry.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: rawURL}
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("url", rawURL).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("Fetched page")

	if b.opts.Cache != nil {
		b.opts.Cache.Set(rawURL, cache.Page{URL: rawURL, Body: body, FetchedAt: time.Now()})
	}
	return body, nil
}
