package runner

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal state of one external invocation.
type RunStatus string

const (
	StatusSuccess RunStatus = "SUCCESS"
	StatusFailed  RunStatus = "FAILED"
	StatusTimeout RunStatus = "TIMEOUT"
)

// RunRecord captures one execution attempt. Records are immutable once
// returned by the runner; Stdout is populated only on success and Stderr
// only on failure or timeout.
type RunRecord struct {
	ID                 string
	InputID            string
	Stage              Stage
	Threads            int
	DurationSeconds    float64
	Status             RunStatus
	Stdout             string
	Stderr             string
	UsedFallbackMemory bool
	Timestamp          time.Time
}

func newRecord(spec JobSpec, status RunStatus, duration time.Duration, stdout, stderr string) RunRecord {
	rec := RunRecord{
		ID:                 uuid.NewString(),
		InputID:            filepath.Base(spec.InputPath),
		Stage:              spec.Stage,
		Threads:            spec.Threads,
		DurationSeconds:    duration.Seconds(),
		Status:             status,
		UsedFallbackMemory: spec.UseFallbackMemory,
		Timestamp:          time.Now().UTC(),
	}
	if status == StatusSuccess {
		rec.Stdout = stdout
	} else {
		rec.Stderr = stderr
	}
	return rec
}
