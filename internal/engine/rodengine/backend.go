// Package rodengine drives Chrome through go-rod, optionally with the
// go-rod/stealth evasions applied to the page.
package rodengine

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/law-makers/scrapekit/internal/engine"
	"github.com/rs/zerolog/log"
	"github.com/ysmood/gson"
)

// Options configures the rod session.
type Options struct {
	ChromePath string
	Headless   bool
	Stealth    bool
	UserAgent  string
	Proxy      string
	Timeout    time.Duration
	Cookies    []*http.Cookie
	Headers    http.Header
}

// Backend is one rod page in a dedicated browser.
type Backend struct {
	opts     Options
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// New launches the browser and opens a page.
func New(ctx context.Context, opts Options) (*Backend, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true)
	if opts.ChromePath != "" {
		l = l.Bin(opts.ChromePath)
	}
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to launch browser", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to connect to browser", err)
	}

	b := &Backend{opts: opts, launcher: l, browser: browser}

	if opts.Stealth {
		b.page, err = stealth.Page(browser)
	} else {
		b.page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		b.Close()
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to open page", err)
	}

	if opts.UserAgent != "" {
		if err := b.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			log.Warn().Err(err).Msg("Failed to override user agent")
		}
	}
	if len(opts.Headers) > 0 {
		hdrs := proto.NetworkHeaders{}
		for k := range opts.Headers {
			hdrs[k] = gson.New(opts.Headers.Get(k))
		}
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: hdrs}).Call(b.page); err != nil {
			log.Warn().Err(err).Msg("Failed to set extra headers")
		}
	}

	log.Debug().Str("control_url", controlURL).Bool("stealth", opts.Stealth).Msg("Rod browser started")
	return b, nil
}

// Name implements engine.Backend.
func (b *Backend) Name() string {
	if b.opts.Stealth {
		return "rod-stealth"
	}
	return "rod"
}

// Open implements engine.Backend.
func (b *Backend) Open(ctx context.Context, url string) error {
	for _, c := range b.opts.Cookies {
		param := cookieParam(url, c)
		if _, err := param.Call(b.page); err != nil {
			log.Warn().Err(err).Str("cookie", c.Name).Msg("Failed to set cookie")
		}
	}

	p := b.page.Context(ctx).Timeout(b.opts.Timeout)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

// Wait implements engine.Backend.
func (b *Backend) Wait(ctx context.Context, d time.Duration) error {
	return engine.Sleep(ctx, d)
}

// Scrape implements engine.Backend. Lookups do not wait for elements.
func (b *Backend) Scrape(ctx context.Context, selector string) (string, error) {
	p := b.page.Context(ctx)

	var (
		els rod.Elements
		err error
	)
	if engine.IsXPath(selector) {
		els, err = p.ElementsX(selector)
	} else {
		els, err = p.Elements(selector)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", engine.NewEngineError(engine.ErrCodeExtraction, "failed to query selector", err).
			WithDetail("selector", selector)
	}
	if els.Empty() {
		return "", engine.NewEngineError(engine.ErrCodeNoMatch, "no element matches "+selector, nil)
	}

	text, err := els.First().Text()
	if err != nil {
		return "", engine.NewEngineError(engine.ErrCodeExtraction, "failed to read element text", err).
			WithDetail("selector", selector)
	}
	return strings.TrimSpace(text), nil
}

// HTML implements engine.Backend.
func (b *Backend) HTML(ctx context.Context) (string, error) {
	return b.page.Context(ctx).HTML()
}

// WaitPresent blocks until selector matches or ctx is done.
func (b *Backend) WaitPresent(ctx context.Context, selector string) (*engine.Element, error) {
	p := b.page.Context(ctx)

	var (
		el  *rod.Element
		err error
	)
	if engine.IsXPath(selector) {
		el, err = p.ElementX(selector)
	} else {
		el, err = p.Element(selector)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	text, _ := el.Text()
	html, _ := el.HTML()
	return &engine.Element{Selector: selector, Text: strings.TrimSpace(text), HTML: html}, nil
}

// Close shuts the browser down.
func (b *Backend) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
	}
	return err
}

func cookieParam(url string, c *http.Cookie) proto.NetworkSetCookie {
	param := proto.NetworkSetCookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
	}
	if param.Domain == "" {
		param.URL = url
	}
	if param.Path == "" {
		param.Path = "/"
	}
	if !c.Expires.IsZero() {
		param.Expires = proto.TimeSinceEpoch(c.Expires.Unix())
	}
	return param
}
