// Package app wires configuration into backends, the scrape coordinator and
// the download manager, and owns the shared resources they use.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/scrapekit/internal/auth"
	"github.com/law-makers/scrapekit/internal/cache"
	"github.com/law-makers/scrapekit/internal/config"
	"github.com/law-makers/scrapekit/internal/downloader"
	"github.com/law-makers/scrapekit/internal/engine"
	"github.com/law-makers/scrapekit/internal/engine/dynamic"
	"github.com/law-makers/scrapekit/internal/engine/pwengine"
	"github.com/law-makers/scrapekit/internal/engine/rodengine"
	"github.com/law-makers/scrapekit/internal/engine/static"
	"github.com/law-makers/scrapekit/internal/idm"
	"github.com/law-makers/scrapekit/internal/proxy"
	"github.com/law-makers/scrapekit/internal/ratelimit"
	"github.com/law-makers/scrapekit/internal/retry"
	"github.com/law-makers/scrapekit/internal/scraper"
	"github.com/law-makers/scrapekit/internal/waiter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Backend is what every configured backend provides: the scrape contract
// and the presence wait.
type Backend interface {
	engine.Backend
	waiter.Driver
}

// Application holds the dependencies shared across CLI commands.
//
// It is created once per command run. Use Close() to release resources.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	Cache       *cache.MemoryCache
	RateLimiter *ratelimit.DomainLimiter
	Proxies     *proxy.Pool
	Sessions    *auth.Store

	// Headers are extra request headers from --header flags.
	Headers http.Header

	sessionOnce sync.Once
	session     *auth.SessionData
	sessionErr  error

	startTime time.Time
}

// New creates an Application from cfg and configures the global logger.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := SetupLogging(cfg, os.Stderr)

	memCache := cache.NewMemoryCache(cfg.CacheMaxSizeBytes, cfg.CacheTTL)
	limiter := ratelimit.NewDomainLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	logger.Debug().
		Str("backend", cfg.Backend).
		Str("readiness", cfg.Readiness).
		Int64("cache_max_size_bytes", cfg.CacheMaxSizeBytes).
		Float64("rps", cfg.RateLimitRPS).
		Msg("Application initialized")

	return &Application{
		Config:      cfg,
		Logger:      &logger,
		Cache:       memCache,
		RateLimiter: limiter,
		Proxies:     proxy.NewPool(proxy.Parse(cfg.Proxy)),
		Sessions:    auth.NewStore(),
		Headers:     http.Header{},
		startTime:   time.Now(),
	}, nil
}

// SetupLogging points the global zerolog logger at w according to cfg.
// Info logs stay hidden unless debug is requested; warnings always show.
func SetupLogging(cfg *config.Config, w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = zerolog.DebugLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.JSONLog {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
	return log.Logger
}

// Session returns the configured auth session, or nil when none is set.
// The session is loaded once.
func (a *Application) Session() (*auth.SessionData, error) {
	if a.Config.SessionName == "" {
		return nil, nil
	}
	a.sessionOnce.Do(func() {
		a.session, a.sessionErr = a.Sessions.Load(a.Config.SessionName)
		if a.sessionErr == nil {
			a.Logger.Debug().
				Str("session", a.session.Name).
				Int("cookies", len(a.session.Cookies)).
				Msg("Using saved session")
		}
	})
	return a.session, a.sessionErr
}

// RetryConfig is the backoff used for backend start-up and navigation.
func (a *Application) RetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = a.Config.RetryAttempts
	return cfg
}

// Readiness returns the configured page readiness strategy.
func (a *Application) Readiness() scraper.Readiness {
	if a.Config.Readiness == config.ReadinessFixed {
		return scraper.FixedDelay{Delay: a.Config.ReadyDelay}
	}
	return scraper.Poll{Interval: a.Config.PollInterval, Attempts: a.Config.PollAttempts}
}

// requestSettings merges session and flag headers (flags win) and returns
// the session cookies.
func (a *Application) requestSettings() (http.Header, []*http.Cookie, error) {
	session, err := a.Session()
	if err != nil {
		return nil, nil, err
	}
	h := http.Header{}
	var cookies []*http.Cookie
	if session != nil {
		h = session.HTTPHeaders()
		cookies = session.HTTPCookies()
	}
	for k, vs := range a.Headers {
		h[k] = append([]string(nil), vs...)
	}
	return h, cookies, nil
}

// NewBackend starts the configured backend. With several proxies configured
// each call takes the next one, and a proxy whose start-up fails is rested.
func (a *Application) NewBackend(ctx context.Context) (Backend, error) {
	px := a.Proxies.Next()
	b, err := a.newBackend(ctx, px)
	if err != nil && px != "" && a.Proxies.Len() > 1 {
		a.Logger.Warn().Err(err).Str("proxy", px).Msg("Backend start-up failed, rotating proxy")
		a.Proxies.MarkFailed(px)
	}
	return b, err
}

func (a *Application) newBackend(ctx context.Context, px string) (Backend, error) {
	h, cookies, err := a.requestSettings()
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "failed to load session", err)
	}
	cfg := a.Config

	switch cfg.Backend {
	case config.BackendStatic:
		return started(static.New(static.Options{
			UserAgent:    cfg.UserAgent,
			Timeout:      cfg.Timeout,
			Proxy:        px,
			Headers:      h,
			Cookies:      cookies,
			Limiter:      a.RateLimiter,
			Cache:        a.Cache,
			Retry:        a.RetryConfig(),
			PollInterval: cfg.PollInterval,
		}))
	case config.BackendRod:
		return started(rodengine.New(ctx, rodengine.Options{
			ChromePath: cfg.ChromePath,
			Headless:   cfg.Headless,
			Stealth:    cfg.Stealth,
			UserAgent:  cfg.UserAgent,
			Proxy:      px,
			Timeout:    cfg.Timeout,
			Cookies:    cookies,
			Headers:    h,
		}))
	case config.BackendPlaywright:
		return started(pwengine.New(ctx, pwengine.Options{
			ChromePath: cfg.ChromePath,
			Headless:   cfg.Headless,
			UserAgent:  cfg.UserAgent,
			Proxy:      px,
			Timeout:    cfg.Timeout,
			Cookies:    cookies,
			Headers:    h,
		}))
	case config.BackendChromedp, "":
		return started(dynamic.New(ctx, dynamic.Options{
			ChromePath: cfg.ChromePath,
			Headless:   cfg.Headless,
			UserAgent:  cfg.UserAgent,
			Proxy:      px,
			Timeout:    cfg.Timeout,
			Cookies:    cookies,
			Headers:    h,
		}))
	default:
		return nil, engine.NewEngineError(engine.ErrCodeBackendInit, "unknown backend "+cfg.Backend, nil)
	}
}

// started keeps a failed constructor from yielding a non-nil Backend
// holding a nil pointer.
func started(b Backend, err error) (Backend, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}

// BackendFactory adapts NewBackend to the coordinator's factory.
func (a *Application) BackendFactory() engine.Factory {
	return func(ctx context.Context) (engine.Backend, error) {
		b, err := a.NewBackend(ctx)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// Coordinator builds a scrape coordinator for site using the configured
// backend, readiness strategy and retries.
func (a *Application) Coordinator(site *config.Site) *scraper.Coordinator {
	return scraper.New(site, a.BackendFactory(),
		scraper.WithReadiness(a.Readiness()),
		scraper.WithRetry(a.RetryConfig()),
		scraper.WithLogger(*a.Logger),
	)
}

// DownloadManager returns the configured hand-off. In-process downloads
// carry the saved session and the request headers. onResult may be nil.
func (a *Application) DownloadManager(cliMode bool, onResult func(*downloader.DownloadResult)) (idm.Manager, error) {
	h, cookies, err := a.requestSettings()
	if err != nil {
		return nil, err
	}
	cfg := a.Config
	return idm.New(idm.Options{
		CLI:         cliMode || cfg.IDMCLI,
		Path:        cfg.IDMPath,
		StartQueue:  cfg.IDMStartQueue,
		Concurrency: cfg.DownloadConcurrency,
		Timeout:     cfg.DownloadTimeout,
		UserAgent:   cfg.UserAgent,
		Headers:     h,
		Cookies:     cookies,
		OnResult:    onResult,
	}), nil
}

// Close releases shared resources.
func (a *Application) Close(ctx context.Context) error {
	hits, misses := a.Cache.Stats()
	a.Logger.Debug().
		Uint64("cache_hits", hits).
		Uint64("cache_misses", misses).
		Dur("uptime", time.Since(a.startTime)).
		Msg("Application shutdown complete")
	return nil
}
