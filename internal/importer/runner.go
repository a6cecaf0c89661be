// Package importer executes SQL artifacts one at a time against a backend,
// verifies the resulting tables and records everything in a run transcript.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stackcheck/seedimport/internal/transcript"
)

const (
	// DefaultPause is the delay inserted between consecutive artifacts.
	DefaultPause = 300 * time.Millisecond

	// DefaultSampleLimit is the number of rows previewed per table.
	DefaultSampleLimit = 5

	bytesPerKB = 1024
	separator  = "============================================================"
)

// DefaultTables are verified after every run, in this order.
var DefaultTables = []string{"supplements", "medications", "interactions"}

var (
	// ErrNilExecutor is returned when a runner is built without an executor.
	ErrNilExecutor = errors.New("executor cannot be nil")

	// ErrNilVerifier is returned when a runner is built without a verifier.
	ErrNilVerifier = errors.New("verifier cannot be nil")

	// ErrNilSource is returned when a runner is built without an artifact source.
	ErrNilSource = errors.New("artifact source cannot be nil")

	// ErrReportPathEmpty is returned when no report location is configured.
	ErrReportPathEmpty = errors.New("report path cannot be empty")

	// ErrCountUnavailable may be returned by a Verifier whose backend answered
	// but did not report a row count. Backends can instead return an error with
	// a CountUnavailable() bool method.
	ErrCountUnavailable = errors.New("row count unavailable")
)

type (
	// Executor runs the SQL text of one artifact.
	Executor interface {
		Execute(ctx context.Context, statement string) error
	}

	// Verifier reads back table state after the import.
	Verifier interface {
		CountRows(ctx context.Context, table string) (int64, error)
		SampleRows(ctx context.Context, table string, limit int) ([]json.RawMessage, error)
	}

	// Backend is a store that can both execute and verify.
	Backend interface {
		Executor
		Verifier
	}

	// Source resolves an artifact identifier to its SQL text.
	Source interface {
		Read(id string) ([]byte, error)
	}

	// DirSource reads artifacts from a directory.
	DirSource string

	// Runner drives a sequential import.
	Runner struct {
		executor    Executor
		verifier    Verifier
		source      Source
		transcript  *transcript.Transcript
		reportPath  string
		pause       time.Duration
		sleep       func(ctx context.Context, d time.Duration)
		now         func() time.Time
		tables      []string
		sampleLimit int
	}

	// Option configures a Runner.
	Option func(*Runner)
)

// Read returns the contents of dir/id.
func (d DirSource) Read(id string) ([]byte, error) {
	return os.ReadFile(filepath.Join(string(d), id))
}

// WithPause overrides the delay between artifacts.
func WithPause(d time.Duration) Option {
	return func(r *Runner) {
		r.pause = d
	}
}

// WithSleep replaces the function used to wait between artifacts.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// WithClock replaces the clock used for timing artifacts.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithTables overrides the tables verified after the import.
func WithTables(tables ...string) Option {
	return func(r *Runner) {
		r.tables = tables
	}
}

// WithSampleLimit overrides the number of rows previewed per table.
func WithSampleLimit(n int) Option {
	return func(r *Runner) {
		r.sampleLimit = n
	}
}

// NewRunner returns a runner that records into t and writes the report to reportPath.
func NewRunner(
	executor Executor,
	verifier Verifier,
	source Source,
	t *transcript.Transcript,
	reportPath string,
	opts ...Option,
) (*Runner, error) {
	switch {
	case executor == nil:
		return nil, ErrNilExecutor
	case verifier == nil:
		return nil, ErrNilVerifier
	case source == nil:
		return nil, ErrNilSource
	case strings.TrimSpace(reportPath) == "":
		return nil, ErrReportPathEmpty
	}

	if t == nil {
		t = transcript.New(nil)
	}

	r := &Runner{
		executor:    executor,
		verifier:    verifier,
		source:      source,
		transcript:  t,
		reportPath:  reportPath,
		pause:       DefaultPause,
		sleep:       sleepContext,
		now:         time.Now,
		tables:      DefaultTables,
		sampleLimit: DefaultSampleLimit,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Run executes ids in order. A failed artifact is recorded and the run moves on;
// every identifier is attempted exactly once. The report file is written when Run
// returns, on every path. The returned error is non-nil only when the report
// could not be written; per-artifact failures are carried in the Report.
func (r *Runner) Run(ctx context.Context, ids []string) (report *Report, err error) {
	defer r.transcript.FlushTo(r.reportPath, &err)

	report = &Report{
		RunID:     uuid.New(),
		StartedAt: r.now(),
		Results:   make([]ExecutionResult, len(ids)),
	}

	for i, id := range ids {
		report.Results[i] = ExecutionResult{ID: id, State: StatePending}
	}

	r.transcript.Log("SEED DATA IMPORT STARTING")
	r.transcript.Logf("Run ID: %s", report.RunID)
	r.transcript.Logf("Processing %d SQL files", len(ids))

	for i := range report.Results {
		r.execute(ctx, &report.Results[i])

		if i < len(report.Results)-1 && r.pause > 0 {
			r.sleep(ctx, r.pause)
		}
	}

	report.FinishedAt = r.now()
	r.summarize(report)

	report.Counts = r.countTables(ctx)
	report.Samples = r.sampleTables(ctx)

	r.transcript.Log("SEED DATA IMPORT COMPLETE")
	r.transcript.Logf("Report saved to: %s", r.reportPath)

	return report, nil
}

func (r *Runner) execute(ctx context.Context, res *ExecutionResult) {
	r.transcript.Log(separator)
	r.transcript.Logf("Processing: %s", res.ID)

	res.start()
	started := r.now()

	if err := ctx.Err(); err != nil {
		res.fail(0, fmt.Errorf("not executed: %w", err))
		r.transcript.Errorf("ERROR: %s", res.Err)

		return
	}

	content, err := r.source.Read(res.ID)
	if err != nil {
		res.fail(r.now().Sub(started), fmt.Errorf("failed to read artifact: %w", err))
		r.transcript.Errorf("ERROR: %s", res.Err)

		return
	}

	res.Bytes = len(content)
	r.transcript.Logf("File read (%.2f KB)", float64(len(content))/bytesPerKB)

	if err := r.executor.Execute(ctx, string(content)); err != nil {
		res.fail(r.now().Sub(started), err)
		r.transcript.Errorf("ERROR: %s", res.Err)

		return
	}

	res.succeed(r.now().Sub(started))
	r.transcript.Logf("Executed successfully (%dms)", res.Elapsed.Milliseconds())
}

func (r *Runner) summarize(report *Report) {
	total := len(report.Results)
	failed := report.Failed()

	r.transcript.Log(separator)
	r.transcript.Log("IMPORT SUMMARY")
	r.transcript.Log(separator)
	r.transcript.Logf("Successful: %d/%d", report.Succeeded(), total)
	r.transcript.Logf("Failed: %d/%d", len(failed), total)
	r.transcript.Logf("Total time: %.2fs", report.Duration().Seconds())

	if len(failed) == 0 {
		return
	}

	r.transcript.Warnf("Failed files:")

	for _, res := range failed {
		r.transcript.Warnf("  - %s: %s", res.ID, res.Err)
	}
}

func (r *Runner) countTables(ctx context.Context) []TableCount {
	r.transcript.Log(separator)
	r.transcript.Log("TABLE COUNTS")

	counts := make([]TableCount, 0, len(r.tables))

	for _, table := range r.tables {
		count := TableCount{Table: table}

		n, err := r.verifier.CountRows(ctx, table)

		switch {
		case err == nil:
			count.Rows = n
			count.Status = CountKnown
			r.transcript.Logf("%s: %d rows", table, n)
		case isCountUnavailable(err):
			count.Status = CountUnknown
			r.transcript.Warnf("%s: Unknown (could not determine count)", table)
		default:
			count.Status = CountError
			count.Err = err.Error()
			r.transcript.Errorf("%s: ERROR (%s)", table, count.Err)
		}

		counts = append(counts, count)
	}

	return counts
}

func (r *Runner) sampleTables(ctx context.Context) []TableSample {
	r.transcript.Log(separator)
	r.transcript.Log("SAMPLE DATA")

	samples := make([]TableSample, 0, len(r.tables))

	for _, table := range r.tables {
		sample := TableSample{Table: table, Rows: []string{}}

		rows, err := r.verifier.SampleRows(ctx, table, r.sampleLimit)
		if err != nil {
			sample.Err = err.Error()
			r.transcript.Errorf("Error fetching %s samples: %s", table, sample.Err)
			samples = append(samples, sample)

			continue
		}

		r.transcript.Logf("%s (showing %d samples):", table, len(rows))

		for i, row := range rows {
			p := preview(row)
			sample.Rows = append(sample.Rows, p)
			r.transcript.Logf("  %d. %s", i+1, p)
		}

		samples = append(samples, sample)
	}

	return samples
}

// countUnavailable marks errors meaning "no count reported" rather than "query failed".
type countUnavailable interface {
	CountUnavailable() bool
}

func isCountUnavailable(err error) bool {
	if errors.Is(err, ErrCountUnavailable) {
		return true
	}

	var cu countUnavailable

	return errors.As(err, &cu) && cu.CountUnavailable()
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
