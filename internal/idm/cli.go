package idm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/law-makers/scrapekit/pkg/models"
	"github.com/rs/zerolog/log"
)

var errNoURL = errors.New("video has no download URL")

// Runner executes a command, streaming its combined output to out.
type Runner interface {
	Run(ctx context.Context, name string, args []string, out io.Writer) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args []string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

type cliManager struct {
	opts Options
}

// Queue adds each video to IDM with
//
//	IDMan /d <url> /p <dir> /f <file> /n /a
//
// (/n: no dialogs, /a: add to queue without starting) and finally runs
// IDMan /s when StartQueue is set.
func (m *cliManager) Queue(ctx context.Context, videos []models.Video, dir string) (*Report, error) {
	abs, err := resolveDir(dir)
	if err != nil {
		return nil, err
	}
	report := &Report{Dir: abs}

	out := newLineWriter(func(line string) {
		log.Debug().Str("tool", "IDMan").Msg(line)
	})
	defer out.Flush()

	names := nameSet{}
	for _, v := range videos {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !v.Downloadable() {
			report.Failed = append(report.Failed, Failure{Video: v, Err: errNoURL})
			continue
		}

		name := names.claim(v)
		args := []string{"/d", v.DownloadURL, "/p", abs, "/f", name, "/n", "/a"}
		if err := m.opts.Runner.Run(ctx, m.opts.Path, args, out); err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return report, fmt.Errorf("IDM executable %q not found: %w", m.opts.Path, err)
			}
			log.Warn().Err(err).Str("video", v.ID).Msg("IDM refused video")
			report.Failed = append(report.Failed, Failure{Video: v, Err: err})
			continue
		}
		report.Queued++
		log.Debug().Str("video", v.ID).Str("file", name).Msg("Queued in IDM")
	}

	if m.opts.StartQueue && report.Queued > 0 {
		if err := m.opts.Runner.Run(ctx, m.opts.Path, []string{"/s"}, out); err != nil {
			return report, fmt.Errorf("starting IDM queue: %w", err)
		}
	}
	return report, nil
}

// lineWriter splits written bytes into lines, strips ANSI escapes and
// passes non-empty lines to a callback.
type lineWriter struct {
	buf      strings.Builder
	callback func(string)
}

var _ io.Writer = (*lineWriter)(nil)

func newLineWriter(callback func(string)) *lineWriter {
	return &lineWriter{callback: callback}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' || b == '\r' {
			w.Flush()
			continue
		}
		w.buf.WriteByte(b)
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *lineWriter) Flush() {
	line := strings.TrimSpace(stripansi.Strip(w.buf.String()))
	w.buf.Reset()
	if line != "" {
		w.callback(line)
	}
}
