// Package idm hands discovered videos to a download manager: either the
// in-process downloader or Internet Download Manager's command line.
package idm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/law-makers/scrapekit/internal/downloader"
	urlutil "github.com/law-makers/scrapekit/internal/utils/url"
	"github.com/law-makers/scrapekit/pkg/models"
)

const defaultExt = ".mp4"

// Options selects and configures the hand-off mode.
type Options struct {
	// CLI drives IDMan.exe instead of downloading in-process.
	CLI bool
	// Path is the IDMan executable.
	Path string
	// StartQueue asks IDM to start its main queue once everything is added.
	StartQueue bool

	Concurrency int
	Timeout     time.Duration
	UserAgent   string
	// Headers and Cookies are sent with in-process downloads. IDM's command
	// line has no way to take them.
	Headers http.Header
	Cookies []*http.Cookie

	// OnResult is called after each in-process download finishes.
	OnResult func(*downloader.DownloadResult)

	// Runner executes external commands. Defaults to os/exec.
	Runner Runner
}

// Report summarizes a Queue call.
type Report struct {
	Queued int
	Dir    string
	Failed []Failure
}

// Failure records a video that could not be queued.
type Failure struct {
	Video models.Video
	Err   error
}

// Manager queues videos for download into a directory.
type Manager interface {
	Queue(ctx context.Context, videos []models.Video, dir string) (*Report, error)
}

// New returns the Manager selected by opts.
func New(opts Options) Manager {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.CLI {
		return &cliManager{opts: opts}
	}
	pool := downloader.NewWorkerPool(opts.Concurrency, opts.Timeout, opts.UserAgent)
	pool.OnResult = opts.OnResult
	return &libraryManager{pool: pool, headers: opts.Headers, cookies: opts.Cookies}
}

// FileName derives the output file name for v: the sanitized title, the id
// as a suffix, and the extension of the download URL (".mp4" when it has none).
func FileName(v models.Video) string {
	ext := urlutil.Extension(v.DownloadURL)
	if ext == "" {
		ext = defaultExt
	}

	title := strings.Join(strings.Fields(v.Title), " ")
	if utf8.RuneCountInString(title) > 120 {
		title = string([]rune(title)[:120])
	}
	title = strings.TrimSuffix(title, ext)

	id := strings.TrimSpace(v.ID)
	if id == "" && title == "" {
		id = downloader.ShortHash(v.DownloadURL)
	}

	var stem string
	switch {
	case title == "":
		stem = id
	case id == "":
		stem = title
	default:
		stem = title + "_" + id
	}
	return downloader.SanitizeFilename(stem + ext)
}

// nameSet hands out file names that are unique within one Queue call.
// Names are compared case-insensitively since IDM runs on Windows.
type nameSet map[string]struct{}

// claim returns FileName(v), or that name with a hash of the download URL
// (and then a counter) appended when it is already taken.
func (s nameSet) claim(v models.Video) string {
	name := FileName(v)
	if _, taken := s[strings.ToLower(name)]; taken {
		hash := downloader.ShortHash(v.DownloadURL)
		candidate := withSuffix(name, "_"+hash)
		for i := 2; ; i++ {
			if _, taken := s[strings.ToLower(candidate)]; !taken {
				break
			}
			candidate = withSuffix(name, fmt.Sprintf("_%s_%d", hash, i))
		}
		name = candidate
	}
	s[strings.ToLower(name)] = struct{}{}
	return name
}

// withSuffix inserts suffix before the extension of name, shortening the
// stem at a rune boundary so the result stays within 200 bytes.
func withSuffix(name, suffix string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if limit := 200 - len(suffix) - len(ext); len(stem) > limit {
		for limit > 0 && !utf8.RuneStart(stem[limit]) {
			limit--
		}
		stem = stem[:limit]
	}
	return stem + suffix + ext
}

// resolveDir makes dir absolute and creates it.
func resolveDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving download directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	return abs, nil
}

type libraryManager struct {
	pool    *downloader.WorkerPool
	headers http.Header
	cookies []*http.Cookie
}

func (m *libraryManager) Queue(ctx context.Context, videos []models.Video, dir string) (*Report, error) {
	abs, err := resolveDir(dir)
	if err != nil {
		return nil, err
	}
	report := &Report{Dir: abs}

	var (
		jobs   []downloader.Job
		queued []models.Video
		names  = nameSet{}
	)
	for _, v := range videos {
		if !v.Downloadable() {
			report.Failed = append(report.Failed, Failure{Video: v, Err: errNoURL})
			continue
		}
		jobs = append(jobs, downloader.Job{URL: v.DownloadURL, Filename: names.claim(v)})
		queued = append(queued, v)
	}

	results := m.pool.DownloadBatch(ctx, jobs, downloader.DownloadOptions{
		OutputDir: abs,
		Headers:   m.headers,
		Cookies:   m.cookies,
	})
	for i, r := range results {
		if r.Success {
			report.Queued++
			continue
		}
		report.Failed = append(report.Failed, Failure{Video: queued[i], Err: r.Error})
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
