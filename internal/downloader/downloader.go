// Package downloader streams files to disk and finds video links in pages.
package downloader

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/law-makers/scrapekit/internal/retry"
	"github.com/law-makers/scrapekit/internal/utils/headers"
	"github.com/rs/zerolog/log"
)

// DownloadResult is the outcome of a single download.
type DownloadResult struct {
	URL       string
	FilePath  string
	Size      int64
	Success   bool
	Error     error
	StartTime time.Time
	Duration  time.Duration
}

// DownloadOptions configures where and how a file is written.
type DownloadOptions struct {
	OutputDir string
	Filename  string
	Headers   http.Header
	// Cookies are offered to every request whose host matches their domain.
	// Cookies without a domain apply to the requested host.
	Cookies []*http.Cookie
}

// Downloader fetches files with streaming I/O.
type Downloader struct {
	client    *http.Client
	userAgent string
}

// NewDownloader creates a Downloader. timeout bounds each whole transfer.
func NewDownloader(timeout time.Duration, userAgent string) *Downloader {
	jar, _ := cookiejar.New(nil) // never fails without options
	return &Downloader{
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Download streams fileURL into opts.OutputDir. The body is written to a
// ".part" file first and renamed once complete.
func (d *Downloader) Download(ctx context.Context, fileURL string, opts DownloadOptions) *DownloadResult {
	result := &DownloadResult{URL: fileURL, StartTime: time.Now()}
	fail := func(err error) *DownloadResult {
		result.Error = err
		result.Duration = time.Since(result.StartTime)
		return result
	}

	if _, err := url.ParseRequestURI(fileURL); err != nil {
		return fail(fmt.Errorf("invalid URL: %w", err))
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fail(fmt.Errorf("failed to create output directory: %w", err))
	}

	name := opts.Filename
	if name == "" {
		name = fileURL
	}
	result.FilePath = filepath.Join(opts.OutputDir, SanitizeFilename(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}
	d.seedCookies(req.URL, opts.Cookies)
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	headers.Apply(req, opts.Headers)

	resp, err := d.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(retry.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: fileURL})
	}

	part := result.FilePath + ".part"
	out, err := os.Create(part)
	if err != nil {
		return fail(fmt.Errorf("failed to create file: %w", err))
	}

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		return fail(fmt.Errorf("failed to write file: %w", err))
	}
	if err := os.Rename(part, result.FilePath); err != nil {
		os.Remove(part)
		return fail(fmt.Errorf("failed to finalize file: %w", err))
	}

	result.Size = n
	result.Success = true
	result.Duration = time.Since(result.StartTime)

	log.Debug().
		Str("url", fileURL).
		Str("file", result.FilePath).
		Int64("bytes", n).
		Dur("duration", result.Duration).
		Msg("Download completed")

	return result
}

func (d *Downloader) seedCookies(target *url.URL, cookies []*http.Cookie) {
	for _, c := range cookies {
		u := target
		if host := strings.TrimPrefix(c.Domain, "."); host != "" {
			u = &url.URL{Scheme: "https", Host: host, Path: "/"}
		}
		d.client.Jar.SetCookies(u, []*http.Cookie{c})
	}
}

var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", "..", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeFilename turns a name or URL into a safe single path element.
// For URLs the last path segment is used, with a short hash of the query
// string so that signed links to the same file do not collide.
func SanitizeFilename(input string) string {
	var queryHash string
	if u, err := url.Parse(input); err == nil && u.Host != "" {
		input = u.Path[strings.LastIndex(u.Path, "/")+1:]
		if u.RawQuery != "" {
			queryHash = "_" + ShortHash(u.RawQuery)
		}
	}

	input = unsafeChars.Replace(input)
	input = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, input)
	input = strings.Trim(strings.TrimSpace(input), ".")

	if queryHash != "" {
		ext := filepath.Ext(input)
		input = strings.TrimSuffix(input, ext) + queryHash + ext
	}
	if input == "" {
		input = fmt.Sprintf("download_%d", time.Now().Unix())
	}
	if len(input) > 200 {
		ext := filepath.Ext(input)
		if len(ext) > 10 {
			ext = ""
		}
		cut := 200 - len(ext)
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = input[:cut] + ext
	}
	return input
}

// ShortHash returns an 8 hex digit FNV-1a hash of s.
func ShortHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
