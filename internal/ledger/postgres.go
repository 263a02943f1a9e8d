package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Schema:
//
//	CREATE TABLE IF NOT EXISTS entremove_runs (
//	    run_id         TEXT PRIMARY KEY,
//	    status         TEXT NOT NULL,
//	    exit_code      INTEGER NOT NULL,
//	    duration_ms    BIGINT NOT NULL,
//	    artifact_count INTEGER NOT NULL,
//	    output_prefix  TEXT,
//	    started_at     TIMESTAMPTZ NOT NULL,
//	    finished_at    TIMESTAMPTZ NOT NULL
//	);
type PostgresRecorder struct {
	db DB
}

func NewPostgresRecorder(db DB) (*PostgresRecorder, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &PostgresRecorder{db: db}, nil
}

func (r *PostgresRecorder) Record(ctx context.Context, rec Record) error {
	if r == nil || r.db == nil {
		return errors.New("ledger recorder not initialized")
	}
	if strings.TrimSpace(rec.RunID) == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(rec.Status) == "" {
		return errors.New("status is required")
	}
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO entremove_runs (
			run_id,
			status,
			exit_code,
			duration_ms,
			artifact_count,
			output_prefix,
			started_at,
			finished_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		strings.TrimSpace(rec.RunID),
		strings.TrimSpace(rec.Status),
		rec.ExitCode,
		rec.DurationMs,
		rec.ArtifactCount,
		nullIfEmpty(rec.OutputPrefix),
		normalizeTime(rec.StartedAt),
		normalizeTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

func nullIfEmpty(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return v
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
