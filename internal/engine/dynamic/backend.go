// Package dynamic drives a headless Chrome through chromedp.
package dynamic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/scrapekit/internal/engine"
	"github.com/rs/zerolog/log"
)

// Options configures the Chrome session.
type Options struct {
	ChromePath   string
	Headless     bool
	UserAgent    string
	Proxy        string
	Timeout      time.Duration
	StartTimeout time.Duration
	Cookies      []*http.Cookie
	Headers      http.Header
}

// Backend is a single Chrome tab.
type Backend struct {
	opts Options

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// New launches Chrome and opens a blank tab. The browser outlives ctx;
// ctx bounds only the launch.
func New(ctx context.Context, opts Options) (*Backend, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 30 * time.Second
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	b := &Backend{
		opts:        opts,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}

	start := time.Now()
	startCtx, cancel := context.WithTimeout(ctx, opts.StartTimeout)
	defer cancel()

	if err := b.run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		b.Close()
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to launch Chrome", err)
	}

	if len(opts.Headers) > 0 {
		extra := make(network.Headers, len(opts.Headers))
		for k := range opts.Headers {
			extra[k] = opts.Headers.Get(k)
		}
		if err := b.run(startCtx, network.Enable(), network.SetExtraHTTPHeaders(extra)); err != nil {
			b.Close()
			return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to set request headers", err)
		}
	}

	log.Debug().
		Bool("headless", opts.Headless).
		Dur("elapsed", time.Since(start)).
		Msg("Chrome started")
	return b, nil
}

// allocatorOptions builds the Chrome command line.
func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
	}

	if path := FindChrome(opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	return allocOpts
}

// Name implements engine.Backend.
func (b *Backend) Name() string { return "chromedp" }

// Open implements engine.Backend.
func (b *Backend) Open(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	actions := []chromedp.Action{}
	if len(b.opts.Cookies) > 0 {
		actions = append(actions, setCookies(url, b.opts.Cookies))
	}
	actions = append(actions,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	return b.run(ctx, actions...)
}

// Wait implements engine.Backend. The page keeps loading meanwhile.
func (b *Backend) Wait(ctx context.Context, d time.Duration) error {
	return engine.Sleep(ctx, d)
}

// Scrape implements engine.Backend.
func (b *Backend) Scrape(ctx context.Context, selector string) (string, error) {
	p, err := b.probe(ctx, selector)
	if err != nil {
		return "", err
	}
	if !p.Found {
		return "", engine.NewEngineError(engine.ErrCodeNoMatch, "no element matches "+selector, nil)
	}
	return strings.TrimSpace(p.Text), nil
}

// HTML implements engine.Backend.
func (b *Backend) HTML(ctx context.Context) (string, error) {
	var out string
	if err := b.run(ctx, chromedp.OuterHTML("html", &out, chromedp.ByQuery)); err != nil {
		return "", engine.NewEngineError(engine.ErrCodeExtraction, "failed to read page HTML", err)
	}
	return out, nil
}

// WaitPresent blocks until selector matches in the current page or ctx is done.
func (b *Backend) WaitPresent(ctx context.Context, selector string) (*engine.Element, error) {
	if err := b.run(ctx, chromedp.WaitReady(selector, chromedp.BySearch)); err != nil {
		return nil, err
	}
	p, err := b.probe(ctx, selector)
	if err != nil {
		return nil, err
	}
	if !p.Found {
		// Matched by search but not by the probe, e.g. a node inside a shadow root.
		return &engine.Element{Selector: selector}, nil
	}
	return p.element(selector), nil
}

// Cookies returns every cookie the browser holds.
func (b *Backend) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	return cookies, err
}

// Close shuts the tab and the browser process.
func (b *Backend) Close() error {
	if b.tabCancel != nil {
		b.tabCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}

func (b *Backend) probe(ctx context.Context, selector string) (probe, error) {
	var p probe
	if err := b.run(ctx, chromedp.Evaluate(probeJS(selector), &p)); err != nil {
		if ctx.Err() != nil {
			return p, ctx.Err()
		}
		return p, engine.NewEngineError(engine.ErrCodeExtraction, "failed to evaluate selector", err).
			WithDetail("selector", selector)
	}
	return p, nil
}

// run executes actions in the tab, bounded by the caller's ctx.
func (b *Backend) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) && b.tabCtx.Err() != nil {
		return engine.NewEngineError(engine.ErrCodeDriver, "browser has gone away", err)
	}
	return err
}

func setCookies(url string, cookies []*http.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithPath(c.Path).
				WithHTTPOnly(c.HttpOnly).
				WithSecure(c.Secure)
			if c.Domain != "" {
				p = p.WithDomain(c.Domain)
			} else {
				p = p.WithURL(url)
			}
			if !c.Expires.IsZero() {
				exp := cdp.TimeSinceEpoch(c.Expires)
				p = p.WithExpires(&exp)
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("setting cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}
