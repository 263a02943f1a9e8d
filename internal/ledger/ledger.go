// Package ledger records completed runs in Postgres so operators can audit
// what executed where. Recording is best-effort: a ledger fault is logged
// by the caller and never fails a run.
package ledger

import (
	"context"
	"time"
)

type Record struct {
	RunID         string
	Status        string
	ExitCode      int
	DurationMs    int64
	ArtifactCount int
	OutputPrefix  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

type Recorder interface {
	Record(ctx context.Context, rec Record) error
}
