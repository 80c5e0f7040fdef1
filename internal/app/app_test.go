package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/law-makers/scrapekit/internal/auth"
	"github.com/law-makers/scrapekit/internal/config"
	"github.com/law-makers/scrapekit/internal/scraper"
	"github.com/law-makers/scrapekit/internal/waiter"
	"github.com/law-makers/scrapekit/pkg/models"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	t.Setenv("CI", "1")
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	cfg.Backend = config.BackendStatic
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	a.Sessions = auth.NewFileStore(t.TempDir())
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestReadinessFromConfig(t *testing.T) {
	a := newTestApp(t, nil)
	if _, ok := a.Readiness().(scraper.Poll); !ok {
		t.Errorf("default readiness should be poll, got %T", a.Readiness())
	}

	a = newTestApp(t, func(c *config.Config) {
		c.Readiness = config.ReadinessFixed
		c.ReadyDelay = 3 * time.Second
	})
	fd, ok := a.Readiness().(scraper.FixedDelay)
	if !ok || fd.Delay != 3*time.Second {
		t.Errorf("expected 3s fixed delay, got %#v", a.Readiness())
	}
}

func TestRetryConfig(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.RetryAttempts = 5 })
	if got := a.RetryConfig().MaxAttempts; got != 5 {
		t.Errorf("expected 5 attempts, got %d", got)
	}
}

func TestCoordinatorWithStaticBackend(t *testing.T) {
	var gotCookie, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			gotCookie = c.Value
		}
		gotHeader = r.Header.Get("X-Token")
		fmt.Fprint(w, `<html><body><h1>Hello</h1><p class="intro">Welcome</p></body></html>`)
	}))
	defer srv.Close()

	a := newTestApp(t, func(c *config.Config) { c.SessionName = "acct" })
	if err := a.Sessions.Save(&auth.SessionData{
		Name:    "acct",
		Cookies: []auth.Cookie{{Name: "sid", Value: "s3cret", Path: "/"}},
	}); err != nil {
		t.Fatalf("Save session: %v", err)
	}
	a.Headers.Set("X-Token", "abc")

	site := config.NewSite(srv.URL, []string{"//h1", ".intro", "//footer"})
	c := a.Coordinator(site)
	defer c.Close()

	res, err := c.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	want := "//h1: Hello\n.intro: Welcome\n//footer: <not found>"
	if got := scraper.Format(res); got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}
	if gotCookie != "s3cret" {
		t.Errorf("session cookie not sent, got %q", gotCookie)
	}
	if gotHeader != "abc" {
		t.Errorf("flag header not sent, got %q", gotHeader)
	}
}

func TestDownloadManagerCarriesSession(t *testing.T) {
	var gotCookie, gotSessionHeader, gotFlagHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			gotCookie = c.Value
		}
		gotSessionHeader = r.Header.Get("Authorization")
		gotFlagHeader = r.Header.Get("X-Token")
		fmt.Fprint(w, "video-bytes")
	}))
	defer srv.Close()

	a := newTestApp(t, func(c *config.Config) { c.SessionName = "acct" })
	if err := a.Sessions.Save(&auth.SessionData{
		Name:    "acct",
		Cookies: []auth.Cookie{{Name: "sid", Value: "s3cret", Path: "/"}},
		Headers: map[string]string{"Authorization": "Bearer t"},
	}); err != nil {
		t.Fatalf("Save session: %v", err)
	}
	a.Headers.Set("X-Token", "abc")

	m, err := a.DownloadManager(false, nil)
	if err != nil {
		t.Fatalf("DownloadManager failed: %v", err)
	}
	report, err := m.Queue(context.Background(), []models.Video{
		{ID: "1", Title: "Clip", DownloadURL: srv.URL + "/clip.mp4"},
	}, t.TempDir())
	if err != nil {
		t.Fatalf("Queue failed: %v", err)
	}
	if report.Queued != 1 {
		t.Fatalf("expected 1 queued, got %+v", report)
	}
	if gotCookie != "s3cret" || gotSessionHeader != "Bearer t" || gotFlagHeader != "abc" {
		t.Errorf("download request missing session: cookie=%q auth=%q flag=%q",
			gotCookie, gotSessionHeader, gotFlagHeader)
	}
}

func TestDownloadManagerMissingSession(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.SessionName = "nobody" })
	if _, err := a.DownloadManager(false, nil); err == nil {
		t.Fatal("expected error for a missing session")
	}
}

func TestNewBackendDrivesWaiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="ready">done</div></body></html>`)
	}))
	defer srv.Close()

	a := newTestApp(t, nil)
	b, err := a.NewBackend(context.Background())
	if err != nil {
		t.Fatalf("NewBackend failed: %v", err)
	}
	defer b.Close()

	if err := b.Open(context.Background(), srv.URL); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	res, err := waiter.ForPresence(context.Background(), b, "#ready", time.Second)
	if err != nil {
		t.Fatalf("ForPresence failed: %v", err)
	}
	if !res.Found() || res.Element.Text != "done" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestMissingSessionFailsBackendInit(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.SessionName = "nope" })
	if _, err := a.NewBackend(context.Background()); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.JSONLog = true
	logger := SetupLogging(cfg, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Error("info should be suppressed at the default level")
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"message":"shown"`)) {
		t.Errorf("expected JSON warning, got %s", buf.String())
	}
}

func TestProxyRotation(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Proxy = "http://p1:8080, http://p2:8080" })
	if a.Proxies.Len() != 2 {
		t.Fatalf("expected 2 proxies, got %d", a.Proxies.Len())
	}
	if got := a.Proxies.Next(); got != "http://p1:8080" {
		t.Errorf("first proxy = %s", got)
	}
	if got := a.Proxies.Next(); got != "http://p2:8080" {
		t.Errorf("second proxy = %s", got)
	}
}
