package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWrapSetsRequestID(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	handler := Wrap(logger, "entremove-orchestrator", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := RequestIDFromContext(r.Context()); !ok || id == "" {
			t.Fatalf("request id missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("response missing X-Request-Id")
	}
}

func TestWrapPreservesCallerRequestID(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	handler := Wrap(logger, "entremove-orchestrator", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "caller-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "caller-id" {
		t.Fatalf("X-Request-Id=%q", got)
	}
}

func TestReadyzReportsFailingCheck(t *testing.T) {
	handler := ReadyzWithChecks("svc",
		ReadinessCheck{Name: "ok", Check: func(ctx context.Context) error { return nil }},
		ReadinessCheck{Name: "store", Check: func(ctx context.Context) error { return errors.New("unreachable") }},
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503 when a check fails", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unreachable") {
		t.Fatalf("body %q does not carry the check error", rec.Body.String())
	}
}

func TestReadyzAllChecksPass(t *testing.T) {
	handler := ReadyzWithChecks("svc",
		ReadinessCheck{Name: "store", Check: func(ctx context.Context) error { return nil }},
	)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	handler := Wrap(logger, "entremove-orchestrator", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500 after panic", rec.Code)
	}
}
