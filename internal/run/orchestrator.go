package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ccdi-ops/entremove-orchestrator/internal/ledger"
	"github.com/ccdi-ops/entremove-orchestrator/internal/storage"
	"github.com/ccdi-ops/entremove-orchestrator/internal/workspace"
)

type slotResolver interface {
	Resolve(ctx context.Context, params Params, destDir string) (Resolved, error)
}

type procRunner interface {
	Run(ctx context.Context, resolved Resolved, workdir string) (ExecutionResult, error)
}

type outputCollector interface {
	Collect(ctx context.Context, root string, dest *storage.Locator) ([]Artifact, error)
}

// Orchestrator drives one run through the state machine:
// resolving, executing, collecting, reporting, with workspace teardown on
// every exit path.
type Orchestrator struct {
	workspaces *workspace.Manager
	resolver   slotResolver
	runner     procRunner
	collector  outputCollector
	sink       Sink            // optional
	ledger     ledger.Recorder // optional
	logger     *slog.Logger
}

func NewOrchestrator(
	workspaces *workspace.Manager,
	resolver slotResolver,
	runner procRunner,
	collector outputCollector,
	sink Sink,
	recorder ledger.Recorder,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if workspaces == nil {
		return nil, errors.New("workspace manager is required")
	}
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if collector == nil {
		return nil, errors.New("collector is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		workspaces: workspaces,
		resolver:   resolver,
		runner:     runner,
		collector:  collector,
		sink:       sink,
		ledger:     recorder,
		logger:     logger,
	}, nil
}

// Execute performs one run. The returned Summary is always populated; the
// error is non-nil only for faults the caller must act on (resolution or
// execution failures), never for a non-zero exit of the external program.
func (o *Orchestrator) Execute(ctx context.Context, params Params) (Summary, error) {
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID)
	summary := Summary{RunID: runID, Artifacts: []Artifact{}, StartedAt: time.Now().UTC(), OutputPrefix: strings.TrimSpace(params.OutputPrefix)}

	dest, err := outputLocator(params)
	if err != nil {
		summary.Status = StatusResolutionFailed
		summary.Error = err.Error()
		o.finish(ctx, logger, &summary)
		return summary, err
	}

	ws, err := o.workspaces.Acquire()
	if err != nil {
		summary.Status = StatusExecutionFailed
		summary.Error = err.Error()
		o.finish(ctx, logger, &summary)
		return summary, err
	}
	defer func() {
		if releaseErr := ws.Release(); releaseErr != nil {
			logger.Error("workspace release failed", "error", releaseErr)
		}
	}()
	logger.Info("workspace acquired", "dir", ws.Dir)

	resolved, err := o.resolver.Resolve(ctx, params, ws.Dir)
	if err != nil {
		summary.Status = StatusResolutionFailed
		summary.Error = err.Error()
		logger.Error("input resolution failed", "error", err)
		o.finish(ctx, logger, &summary)
		return summary, err
	}

	result, err := o.runner.Run(ctx, resolved, ws.Dir)
	summary.ExitCode = result.ExitCode
	summary.Stdout = result.Stdout
	summary.Stderr = result.Stderr
	summary.DurationMs = result.Duration.Milliseconds()
	if err != nil {
		summary.Status = StatusExecutionFailed
		summary.Error = err.Error()
		logger.Error("execution failed", "error", err)
		o.finish(ctx, logger, &summary)
		return summary, err
	}
	if result.TimedOut {
		summary.Status = StatusTimedOut
		summary.Error = "external program exceeded its time budget"
		o.finish(ctx, logger, &summary)
		return summary, nil
	}

	artifacts, err := o.collector.Collect(ctx, ws.Dir, dest)
	if err != nil {
		summary.Status = statusForExit(result.ExitCode)
		summary.Error = err.Error()
		logger.Error("output collection failed", "error", err)
		o.finish(ctx, logger, &summary)
		return summary, err
	}
	summary.Artifacts = artifacts
	summary.Status = statusForExit(result.ExitCode)

	o.finish(ctx, logger, &summary)
	return summary, nil
}

func statusForExit(code int) Status {
	if code == 0 {
		return StatusSucceeded
	}
	return StatusNonZeroExit
}

// finish stamps the summary and hands it to the reporting surface and the
// ledger. Both are best-effort; the summary is returned to the direct
// caller regardless.
func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, summary *Summary) {
	summary.FinishedAt = time.Now().UTC()

	// Reporting still runs when the run's context was canceled by a timeout.
	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if o.sink != nil {
		if err := o.sink.Publish(reportCtx, *summary); err != nil {
			logger.Warn("summary publish failed", "error", err)
		}
	}
	if o.ledger != nil {
		rec := ledger.Record{
			RunID:         summary.RunID,
			Status:        string(summary.Status),
			ExitCode:      summary.ExitCode,
			DurationMs:    summary.DurationMs,
			ArtifactCount: len(summary.Artifacts),
			OutputPrefix:  summary.OutputPrefix,
			StartedAt:     summary.StartedAt,
			FinishedAt:    summary.FinishedAt,
		}
		if err := o.ledger.Record(reportCtx, rec); err != nil {
			logger.Warn("ledger record failed", "error", err)
		}
	}
	logger.Info("run finished", "status", string(summary.Status), "exit_code", summary.ExitCode, "artifacts", len(summary.Artifacts))
}

// outputLocator interprets the caller's output destination: an s3 URI, a
// bare key prefix when a bucket was supplied, or a local directory.
func outputLocator(params Params) (*storage.Locator, error) {
	raw := strings.TrimSpace(params.OutputPrefix)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "s3://") {
		loc, err := storage.ParseLocator(raw)
		if err != nil {
			return nil, fmt.Errorf("output prefix: %w", err)
		}
		return &loc, nil
	}
	if params.Bucket != "" && !filepath.IsAbs(raw) {
		loc, err := storage.ForKey(params.Bucket, raw)
		if err != nil {
			return nil, fmt.Errorf("output prefix: %w", err)
		}
		return &loc, nil
	}
	return &storage.Locator{Path: raw}, nil
}
