package idm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/law-makers/scrapekit/internal/downloader"
	"github.com/law-makers/scrapekit/pkg/models"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	output string
	fail   map[string]error // keyed by download URL
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, out io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{name: name, args: args})
	if f.output != "" {
		fmt.Fprint(out, f.output)
	}
	if len(args) > 1 && args[0] == "/d" {
		if err, ok := f.fail[args[1]]; ok {
			return err
		}
	}
	return nil
}

func TestFileName(t *testing.T) {
	tests := []struct {
		video models.Video
		want  string
	}{
		{models.Video{ID: "42", Title: "Intro to Go", DownloadURL: "https://e.com/a.webm"}, "Intro to Go_42.webm"},
		{models.Video{ID: "7", Title: "Clip", DownloadURL: "https://e.com/watch?v=7"}, "Clip_7.mp4"},
		{models.Video{ID: "9", Title: "Part 1: Setup/Install", DownloadURL: "https://e.com/9.mp4"}, "Part 1_ Setup_Install_9.mp4"},
		{models.Video{ID: "3", DownloadURL: "https://e.com/3.mov"}, "3.mov"},
		{models.Video{Title: "  spaced   out  ", DownloadURL: "https://e.com/x.mp4"}, "spaced out.mp4"},
		{models.Video{ID: "1", Title: "already.mp4", DownloadURL: "https://e.com/1.mp4"}, "already_1.mp4"},
	}
	for _, tt := range tests {
		if got := FileName(tt.video); got != tt.want {
			t.Errorf("FileName(%+v) = %q, want %q", tt.video, got, tt.want)
		}
	}
}

func TestFileNameWithoutTitleOrID(t *testing.T) {
	name := FileName(models.Video{DownloadURL: "https://e.com/stream"})
	if !strings.HasSuffix(name, ".mp4") || len(name) != len("00000000.mp4") {
		t.Fatalf("expected hash-derived name, got %q", name)
	}
}

func TestFileNameMultibyteTitle(t *testing.T) {
	name := FileName(models.Video{Title: strings.Repeat("日本語", 40), ID: "abc", DownloadURL: "https://e.com/a.mp4"})
	if len(name) > 200 || !strings.HasSuffix(name, ".mp4") {
		t.Fatalf("expected at most 200 bytes ending in .mp4, got %d bytes", len(name))
	}
	if !utf8.ValidString(name) {
		t.Fatalf("file name is not valid UTF-8: %q", name)
	}
}

func TestNameSetClaim(t *testing.T) {
	names := nameSet{}
	a := models.Video{ID: "player", Title: "Trailer", DownloadURL: "https://e.com/720.mp4"}
	b := models.Video{ID: "player", Title: "Trailer", DownloadURL: "https://e.com/1080.mp4"}

	first, second := names.claim(a), names.claim(b)
	if first != "Trailer_player.mp4" {
		t.Fatalf("first claim = %q", first)
	}
	want := "Trailer_player_" + downloader.ShortHash(b.DownloadURL) + ".mp4"
	if second != want {
		t.Fatalf("second claim = %q, want %q", second, want)
	}
	if third := names.claim(b); third == second || third == first {
		t.Fatalf("repeated URL reused name %q", third)
	}

	long := models.Video{Title: strings.Repeat("日本語", 40), ID: "abc", DownloadURL: "https://e.com/a.mp4"}
	names.claim(long)
	again := names.claim(long)
	if len(again) > 200 || !utf8.ValidString(again) || !strings.HasSuffix(again, ".mp4") {
		t.Fatalf("suffixed long name invalid: %d bytes, %q", len(again), again)
	}
}

func TestCLIQueue(t *testing.T) {
	runner := &fakeRunner{output: "\x1b[32mAdded\x1b[0m\r\n"}
	m := New(Options{CLI: true, Path: "IDMan.exe", StartQueue: true, Runner: runner})

	dir := filepath.Join(t.TempDir(), "out")
	videos := []models.Video{
		{ID: "1", Title: "One", DownloadURL: "https://e.com/1.mp4"},
		{ID: "2", Title: "Two"},
		{ID: "3", Title: "Three", DownloadURL: "https://e.com/3.mp4"},
	}

	report, err := m.Queue(context.Background(), videos, dir)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if report.Queued != 2 {
		t.Fatalf("Queued = %d, want 2", report.Queued)
	}
	if len(report.Failed) != 1 || report.Failed[0].Video.ID != "2" {
		t.Fatalf("expected video 2 to fail, got %+v", report.Failed)
	}
	if !filepath.IsAbs(report.Dir) {
		t.Fatalf("report dir should be absolute: %s", report.Dir)
	}
	if info, err := os.Stat(report.Dir); err != nil || !info.IsDir() {
		t.Fatalf("download dir not created: %v", err)
	}

	wantFirst := []string{"/d", "https://e.com/1.mp4", "/p", report.Dir, "/f", "One_1.mp4", "/n", "/a"}
	if len(runner.calls) != 3 {
		t.Fatalf("expected 2 adds and a start, got %d calls", len(runner.calls))
	}
	if runner.calls[0].name != "IDMan.exe" || !reflect.DeepEqual(runner.calls[0].args, wantFirst) {
		t.Fatalf("unexpected first call %+v", runner.calls[0])
	}
	if !reflect.DeepEqual(runner.calls[2].args, []string{"/s"}) {
		t.Fatalf("expected start-queue call last, got %+v", runner.calls[2])
	}
}

func TestCLIQueueWithoutStart(t *testing.T) {
	runner := &fakeRunner{}
	m := New(Options{CLI: true, Path: "IDMan.exe", Runner: runner})

	_, err := m.Queue(context.Background(), []models.Video{{ID: "1", DownloadURL: "https://e.com/1.mp4"}}, t.TempDir())
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	for _, c := range runner.calls {
		if c.args[0] == "/s" {
			t.Fatal("queue started although StartQueue is off")
		}
	}
}

func TestCLIQueuePerVideoFailure(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{"https://e.com/bad.mp4": errors.New("exit status 1")}}
	m := New(Options{CLI: true, Path: "IDMan.exe", Runner: runner})

	report, err := m.Queue(context.Background(), []models.Video{
		{ID: "bad", DownloadURL: "https://e.com/bad.mp4"},
		{ID: "ok", DownloadURL: "https://e.com/ok.mp4"},
	}, t.TempDir())
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if report.Queued != 1 || len(report.Failed) != 1 || report.Failed[0].Video.ID != "bad" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestCLIQueueMissingExecutable(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{"https://e.com/1.mp4": exec.ErrNotFound}}
	m := New(Options{CLI: true, Path: "IDMan.exe", Runner: runner})

	_, err := m.Queue(context.Background(), []models.Video{
		{ID: "1", DownloadURL: "https://e.com/1.mp4"},
		{ID: "2", DownloadURL: "https://e.com/2.mp4"},
	}, t.TempDir())
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("should stop after the first missing-executable error, got %d calls", len(runner.calls))
	}
}

func TestLibraryQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "gone.mp4") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	var mu sync.Mutex
	var finished int
	m := New(Options{
		Concurrency: 2,
		Timeout:     5 * time.Second,
		OnResult: func(*downloader.DownloadResult) {
			mu.Lock()
			finished++
			mu.Unlock()
		},
	})

	dir := t.TempDir()
	report, err := m.Queue(context.Background(), []models.Video{
		{ID: "a", Title: "Alpha", DownloadURL: srv.URL + "/a.mp4"},
		{ID: "b", Title: "Beta", DownloadURL: srv.URL + "/gone.mp4"},
		{ID: "c", Title: "Gamma"},
	}, dir)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}

	if report.Queued != 1 || len(report.Failed) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if finished != 2 {
		t.Fatalf("OnResult called %d times, want 2", finished)
	}
	data, err := os.ReadFile(filepath.Join(report.Dir, "Alpha_a.mp4"))
	if err != nil || string(data) != "video-bytes" {
		t.Fatalf("downloaded file missing or wrong: %q, %v", data, err)
	}
}

func TestLibraryQueueSourcesOfOneVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	page := `<html><body><video id="player" title="Trailer">
		<source src="/720.mp4" type="video/mp4">
		<source src="/1080.mp4" type="video/mp4">
	</video></body></html>`
	videos, err := downloader.DiscoverVideos(page, srv.URL+"/watch")
	if err != nil {
		t.Fatalf("DiscoverVideos: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 sources, got %+v", videos)
	}

	m := New(Options{Concurrency: 2, Timeout: 5 * time.Second})
	report, err := m.Queue(context.Background(), videos, t.TempDir())
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if report.Queued != 2 {
		t.Fatalf("Queued = %d, want 2 (failed: %+v)", report.Queued, report.Failed)
	}

	entries, err := os.ReadDir(report.Dir)
	if err != nil {
		t.Fatal(err)
	}
	bodies := map[string]bool{}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(report.Dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		bodies[string(data)] = true
	}
	if len(entries) != 2 || !bodies["/720.mp4"] || !bodies["/1080.mp4"] {
		t.Fatalf("expected both sources on disk, got %d files with bodies %v", len(entries), bodies)
	}
}

func TestCLIQueueDistinctFileNames(t *testing.T) {
	runner := &fakeRunner{}
	m := New(Options{CLI: true, Path: "IDMan.exe", Runner: runner})

	_, err := m.Queue(context.Background(), []models.Video{
		{ID: "player", Title: "Trailer", DownloadURL: "https://e.com/720.mp4"},
		{ID: "player", Title: "Trailer", DownloadURL: "https://e.com/1080.mp4"},
	}, t.TempDir())
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(runner.calls))
	}
	if a, b := runner.calls[0].args[5], runner.calls[1].args[5]; a == b {
		t.Fatalf("both jobs were given file name %q", a)
	}
}

func TestQueueEmpty(t *testing.T) {
	for _, cli := range []bool{false, true} {
		m := New(Options{CLI: cli, Runner: &fakeRunner{}})
		report, err := m.Queue(context.Background(), nil, t.TempDir())
		if err != nil {
			t.Fatalf("cli=%v: %v", cli, err)
		}
		if report.Queued != 0 || len(report.Failed) != 0 {
			t.Fatalf("cli=%v: unexpected report %+v", cli, report)
		}
	}
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := newLineWriter(func(s string) { lines = append(lines, s) })

	fmt.Fprint(w, "\x1b[1mfirst\x1b[0m\r\n\nsec")
	fmt.Fprint(w, "ond\npartial")
	w.Flush()

	want := []string{"first", "second", "partial"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
}
