package importer

import "time"

// BatchState is the lifecycle position of one artifact within a run.
// Pending -> Running -> Succeeded | Failed; terminal states never change.
type BatchState int

const (
	StatePending BatchState = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s BatchState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s BatchState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// ExecutionResult records the outcome of executing one artifact.
type ExecutionResult struct {
	ID      string
	State   BatchState
	Bytes   int
	Elapsed time.Duration
	Err     string
}

// Success reports whether the artifact executed without error.
func (r ExecutionResult) Success() bool {
	return r.State == StateSucceeded
}

func (r *ExecutionResult) start() {
	if r.State == StatePending {
		r.State = StateRunning
	}
}

func (r *ExecutionResult) succeed(elapsed time.Duration) {
	if r.State == StateRunning {
		r.State = StateSucceeded
		r.Elapsed = elapsed
	}
}

func (r *ExecutionResult) fail(elapsed time.Duration, err error) {
	if r.State == StateRunning {
		r.State = StateFailed
		r.Elapsed = elapsed
		r.Err = err.Error()
	}
}
