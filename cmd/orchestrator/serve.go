package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ccdi-ops/entremove-orchestrator/internal/platform/auth"
	"github.com/ccdi-ops/entremove-orchestrator/internal/platform/env"
	"github.com/ccdi-ops/entremove-orchestrator/internal/platform/httpserver"
	"github.com/ccdi-ops/entremove-orchestrator/internal/run"
	"github.com/ccdi-ops/entremove-orchestrator/internal/storage/objectstore"
)

const serviceName = "entremove-orchestrator"

// serveMain runs the orchestrator as a managed worker: the scheduler POSTs
// a parameter set and gets the run summary back in the response.
func serveMain(ctx context.Context, logger *slog.Logger, args []string) int {
	_ = args

	addr := env.String("ENTREMOVE_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("ENTREMOVE_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		return exitConfig
	}
	maxSkew, err := env.Duration("ENTREMOVE_INTERNAL_AUTH_MAX_SKEW", auth.DefaultMaxSkew)
	if err != nil {
		logger.Error("invalid env", "error", err)
		return exitConfig
	}
	authSecret := env.String("ENTREMOVE_INTERNAL_AUTH_SECRET", "")

	orch, store, cleanup, err := buildOrchestrator(ctx, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitConfig
	}
	defer cleanup()

	if store != nil && store.Bucket() != "" {
		if err := store.EnsureBucket(ctx); err != nil {
			logger.Error("bucket provisioning failed", "bucket", store.Bucket(), "error", err)
			return exitConfig
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", httpserver.Healthz(serviceName))
	mux.HandleFunc("GET /readyz", httpserver.ReadyzWithChecks(serviceName, readinessChecks(store)...))
	mux.Handle("POST /v1/runs", auth.Middleware(authSecret, maxSkew, runsHandler(orch, logger)))

	handler := httpserver.Wrap(logger, serviceName, mux)
	if err := httpserver.Run(ctx, logger, httpserver.Config{
		Service:         serviceName,
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}, handler); err != nil {
		logger.Error("http server failed", "error", err)
		return exitInternal
	}
	return exitOK
}

// readinessChecks probes the object store when one is configured with a
// default bucket. Local-only deployments have nothing to check.
func readinessChecks(store *objectstore.MinioStore) []httpserver.ReadinessCheck {
	if store == nil || store.Bucket() == "" {
		return nil
	}
	return []httpserver.ReadinessCheck{{Name: "objectstore", Check: store.Ready}}
}

type runExecutor interface {
	Execute(ctx context.Context, params run.Params) (run.Summary, error)
}

func runsHandler(orch runExecutor, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params run.Params
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&params); err != nil {
			httpserver.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid parameter set: " + err.Error()})
			return
		}

		summary, err := orch.Execute(r.Context(), params)
		if err != nil {
			logger.Error("run failed", "run_id", summary.RunID, "status", string(summary.Status), "error", err)
		}
		// The summary is the result even for failed runs; HTTP status
		// only distinguishes orchestrator faults from completed runs.
		status := http.StatusOK
		if summary.Status == run.StatusResolutionFailed || summary.Status == run.StatusExecutionFailed {
			status = http.StatusUnprocessableEntity
		}
		httpserver.WriteJSON(w, status, summary)
	})
}
