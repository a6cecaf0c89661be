// Package transcript accumulates the timestamped event log of one run and
// writes it to the report location exactly once.
package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// timestampLayout is ISO-8601 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

type (
	// Transcript is an append-only, ordered log of run events.
	// Every line is also mirrored to the structured logger.
	Transcript struct {
		mu      sync.Mutex
		lines   []string
		logger  *slog.Logger
		now     func() time.Time
		flushed bool
	}

	// Option configures a Transcript.
	Option func(*Transcript)
)

// WithClock replaces the wall clock used for line timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Transcript) {
		t.now = now
	}
}

// New returns an empty transcript. A nil logger discards the mirror output.
func New(logger *slog.Logger, opts ...Option) *Transcript {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	t := &Transcript{
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Log appends an informational line.
func (t *Transcript) Log(msg string) {
	t.append(slog.LevelInfo, msg)
}

// Logf appends a formatted informational line.
func (t *Transcript) Logf(format string, args ...any) {
	t.append(slog.LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf appends a formatted line mirrored at warn level.
func (t *Transcript) Warnf(format string, args ...any) {
	t.append(slog.LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf appends a formatted line mirrored at error level.
func (t *Transcript) Errorf(format string, args ...any) {
	t.append(slog.LevelError, fmt.Sprintf(format, args...))
}

func (t *Transcript) append(level slog.Level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lines = append(t.lines, fmt.Sprintf("[%s] %s", t.now().UTC().Format(timestampLayout), msg))
	t.logger.Log(context.Background(), level, msg)
}

// Lines returns a copy of the lines recorded so far.
func (t *Transcript) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.lines))
	copy(out, t.lines)

	return out
}

// String joins the recorded lines with newlines.
func (t *Transcript) String() string {
	return strings.Join(t.Lines(), "\n")
}

// WriteFile writes the transcript to path, replacing any previous report.
// Only the first call writes; later calls return nil without touching the file.
func (t *Transcript) WriteFile(path string) error {
	t.mu.Lock()
	if t.flushed {
		t.mu.Unlock()

		return nil
	}

	t.flushed = true
	content := strings.Join(t.lines, "\n")
	t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), filePerm); err != nil { //nolint:gosec // report is not secret
		return fmt.Errorf("failed to write report: %w", err)
	}

	t.logger.Info("Report written", slog.String("path", path))

	return nil
}

// FlushTo is meant to be deferred by the owner of a run:
//
//	defer t.FlushTo(path, &err)
//
// It writes the report and, if the run had no error of its own, surfaces a write failure through errp.
func (t *Transcript) FlushTo(path string, errp *error) {
	if err := t.WriteFile(path); err != nil && errp != nil && *errp == nil {
		*errp = err
	}
}
