package importer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// previewLimit is the number of characters of a sample row kept in the report.
const previewLimit = 150

// CountStatus says whether a table count could be determined.
type CountStatus int

const (
	CountKnown CountStatus = iota
	CountUnknown
	CountError
)

type (
	// TableCount is the post-import row count of one table.
	TableCount struct {
		Table  string
		Rows   int64
		Status CountStatus
		Err    string
	}

	// TableSample holds row previews for one table.
	TableSample struct {
		Table string
		Rows  []string
		Err   string
	}

	// Report is the outcome of one import run.
	Report struct {
		RunID      uuid.UUID
		StartedAt  time.Time
		FinishedAt time.Time
		Results    []ExecutionResult
		Counts     []TableCount
		Samples    []TableSample
	}
)

// Value renders the count for the report: the number, "Unknown" or "ERROR".
func (c TableCount) Value() string {
	switch c.Status {
	case CountKnown:
		return strconv.FormatInt(c.Rows, 10)
	case CountUnknown:
		return "Unknown"
	default:
		return "ERROR"
	}
}

// Succeeded returns the number of artifacts that executed successfully.
func (r *Report) Succeeded() int {
	n := 0

	for _, res := range r.Results {
		if res.Success() {
			n++
		}
	}

	return n
}

// Failed returns the results of artifacts that did not execute successfully, in run order.
func (r *Report) Failed() []ExecutionResult {
	var failed []ExecutionResult

	for _, res := range r.Results {
		if !res.Success() {
			failed = append(failed, res)
		}
	}

	return failed
}

// OK reports whether every artifact succeeded.
func (r *Report) OK() bool {
	return len(r.Failed()) == 0
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// preview compacts a JSON row and truncates it to previewLimit characters.
func preview(row json.RawMessage) string {
	var buf bytes.Buffer

	text := string(row)
	if err := json.Compact(&buf, row); err == nil {
		text = buf.String()
	}

	if utf8.RuneCountInString(text) <= previewLimit {
		return text
	}

	return string([]rune(text)[:previewLimit]) + "..."
}
