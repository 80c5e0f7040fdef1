// Package pwengine drives Chromium through playwright-go.
package pwengine

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/law-makers/scrapekit/internal/engine"
	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"
)

// Options configures the playwright session.
type Options struct {
	ChromePath string
	Headless   bool
	UserAgent  string
	Proxy      string
	Timeout    time.Duration
	Cookies    []*http.Cookie
	Headers    http.Header
}

// Backend is one playwright page.
type Backend struct {
	opts    Options
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

// New starts the playwright driver, launches Chromium and opens a page.
// The driver and browsers must already be installed.
func New(ctx context.Context, opts Options) (*Backend, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to start playwright", err)
	}
	b := &Backend{opts: opts, pw: pw}

	launch := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(opts.Headless)}
	if opts.ChromePath != "" {
		launch.ExecutablePath = playwright.String(opts.ChromePath)
	}
	if opts.Proxy != "" {
		launch.Proxy = &playwright.Proxy{Server: opts.Proxy}
	}
	b.browser, err = pw.Chromium.Launch(launch)
	if err != nil {
		b.Close()
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to launch chromium", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	if len(opts.Headers) > 0 {
		ctxOpts.ExtraHttpHeaders = make(map[string]string, len(opts.Headers))
		for k := range opts.Headers {
			ctxOpts.ExtraHttpHeaders[k] = opts.Headers.Get(k)
		}
	}
	bctx, err := b.browser.NewContext(ctxOpts)
	if err != nil {
		b.Close()
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to create browser context", err)
	}
	b.page, err = bctx.NewPage()
	if err != nil {
		b.Close()
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to open page", err)
	}
	b.page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	log.Debug().Str("version", b.browser.Version()).Msg("Playwright browser started")
	return b, nil
}

// Name implements engine.Backend.
func (b *Backend) Name() string { return "playwright" }

// Open implements engine.Backend.
func (b *Backend) Open(ctx context.Context, url string) error {
	if len(b.opts.Cookies) > 0 {
		if err := b.page.Context().AddCookies(optionalCookies(url, b.opts.Cookies)); err != nil {
			log.Warn().Err(err).Msg("Failed to restore cookies")
		}
	}

	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(timeoutMS(ctx, b.opts.Timeout)),
	})
	return mapErr(ctx, err)
}

// Wait implements engine.Backend.
func (b *Backend) Wait(ctx context.Context, d time.Duration) error {
	return engine.Sleep(ctx, d)
}

// Scrape implements engine.Backend.
func (b *Backend) Scrape(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	loc := b.page.Locator(locatorFor(selector))

	n, err := loc.Count()
	if err != nil {
		return "", engine.NewEngineError(engine.ErrCodeExtraction, "failed to query selector", err).
			WithDetail("selector", selector)
	}
	if n == 0 {
		return "", engine.NewEngineError(engine.ErrCodeNoMatch, "no element matches "+selector, nil)
	}

	text, err := loc.First().TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(timeoutMS(ctx, b.opts.Timeout)),
	})
	if err != nil {
		return "", engine.NewEngineError(engine.ErrCodeExtraction, "failed to read element text", mapErr(ctx, err)).
			WithDetail("selector", selector)
	}
	return strings.TrimSpace(text), nil
}

// HTML implements engine.Backend.
func (b *Backend) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.page.Content()
}

// WaitPresent blocks until selector is attached to the DOM or ctx expires.
func (b *Backend) WaitPresent(ctx context.Context, selector string) (*engine.Element, error) {
	loc := b.page.Locator(locatorFor(selector)).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(timeoutMS(ctx, b.opts.Timeout)),
	})
	if err != nil {
		return nil, mapErr(ctx, err)
	}

	text, _ := loc.TextContent()
	html, _ := loc.Evaluate("n => n.outerHTML", nil)
	el := &engine.Element{Selector: selector, Text: strings.TrimSpace(text)}
	if s, ok := html.(string); ok {
		el.HTML = s
	}
	return el, nil
}

// Close shuts the browser and the driver down.
func (b *Backend) Close() error {
	var errs []error
	if b.browser != nil {
		errs = append(errs, b.browser.Close())
	}
	if b.pw != nil {
		errs = append(errs, b.pw.Stop())
	}
	return errors.Join(errs...)
}

// locatorFor prefixes XPath selectors so playwright does not guess the engine.
func locatorFor(selector string) string {
	if engine.IsXPath(selector) {
		return "xpath=" + selector
	}
	return selector
}

// timeoutMS converts what is left of ctx into a playwright timeout,
// falling back to def when ctx has no deadline.
func timeoutMS(ctx context.Context, def time.Duration) float64 {
	if dl, ok := ctx.Deadline(); ok {
		left := time.Until(dl)
		if left < time.Millisecond {
			left = time.Millisecond
		}
		return float64(left.Milliseconds())
	}
	return float64(def.Milliseconds())
}

// mapErr turns a playwright timeout into the context's error so callers can
// tell an expired wait from a driver failure.
func mapErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return context.DeadlineExceeded
	}
	return err
}

func optionalCookies(url string, cookies []*http.Cookie) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		oc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			HttpOnly: playwright.Bool(c.HttpOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Domain != "" {
			oc.Domain = playwright.String(c.Domain)
			path := c.Path
			if path == "" {
				path = "/"
			}
			oc.Path = playwright.String(path)
		} else {
			oc.URL = playwright.String(url)
		}
		if !c.Expires.IsZero() {
			oc.Expires = playwright.Float(float64(c.Expires.Unix()))
		}
		out = append(out, oc)
	}
	return out
}
