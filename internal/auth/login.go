package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/law-makers/scrapekit/internal/engine/dynamic"
	"github.com/law-makers/scrapekit/internal/utils/headers"
	"github.com/law-makers/scrapekit/internal/waiter"
	"github.com/rs/zerolog/log"
)

// LoginOptions configures an interactive login.
type LoginOptions struct {
	SessionName string
	URL         string
	// WaitSelector proves the login succeeded once present. Without it the
	// user confirms on Prompt.
	WaitSelector string
	Timeout      time.Duration
	ChromePath   string
	Headers      http.Header
	Prompt       io.Reader
	Out          io.Writer
}

// InteractiveLogin opens a visible Chrome on opts.URL, waits for the user
// to log in and captures the resulting cookies.
func InteractiveLogin(ctx context.Context, opts LoginOptions) (*SessionData, error) {
	if opts.SessionName == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Prompt == nil {
		opts.Prompt = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return nil, fmt.Errorf("interactive login requires a display server (DISPLAY not set)")
	}

	log.Info().Str("session", opts.SessionName).Str("url", opts.URL).Msg("Starting interactive login")

	b, err := dynamic.New(ctx, dynamic.Options{
		ChromePath: opts.ChromePath,
		Headless:   false,
		Timeout:    opts.Timeout,
		Headers:    opts.Headers,
	})
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if err := b.Open(ctx, opts.URL); err != nil {
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}

	fmt.Fprintln(opts.Out, "Browser opened. Complete the login in the browser window.")
	if opts.WaitSelector != "" {
		fmt.Fprintf(opts.Out, "Waiting up to %s for %s\n", opts.Timeout, opts.WaitSelector)
		res, err := waiter.ForPresence(ctx, b, opts.WaitSelector, opts.Timeout)
		if err != nil {
			return nil, err
		}
		if !res.Found() {
			return nil, fmt.Errorf("login not confirmed: %s", res.Diagnostic)
		}
	} else {
		fmt.Fprintln(opts.Out, "Press Enter once you have logged in...")
		if _, err := bufio.NewReader(opts.Prompt).ReadString('\n'); err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading confirmation: %w", err)
		}
	}

	cookies, err := b.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies found, login may have failed")
	}

	log.Info().Int("cookie_count", len(cookies)).Msg("Cookies extracted")
	return newSession(opts.SessionName, opts.URL, cookies, opts.Headers, time.Now()), nil
}

// newSession builds a session from DevTools cookies. The session expires
// with its longest-lived persistent cookie.
func newSession(name, url string, cookies []*network.Cookie, h http.Header, now time.Time) *SessionData {
	s := &SessionData{
		Name:      name,
		URL:       url,
		Cookies:   make([]Cookie, 0, len(cookies)),
		CreatedAt: now,
	}
	if len(h) > 0 {
		s.Headers = headers.Flatten(h)
	}

	var maxExpires float64
	for _, c := range cookies {
		s.Cookies = append(s.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
		if c.Expires > maxExpires {
			maxExpires = c.Expires
		}
	}
	if maxExpires > 0 {
		s.ExpiresAt = time.Unix(int64(maxExpires), 0)
	}
	return s
}
