package run

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Status string

const (
	StatusSucceeded        Status = "succeeded"
	StatusNonZeroExit      Status = "non_zero_exit"
	StatusTimedOut         Status = "timed_out"
	StatusResolutionFailed Status = "resolution_failed"
	StatusExecutionFailed  Status = "execution_failed"
)

// Summary is the structured result of one run, returned to the direct
// caller and published to the reporting surface.
type Summary struct {
	RunID        string     `json:"run_id"`
	Status       Status     `json:"status"`
	ExitCode     int        `json:"exit_code"`
	DurationMs   int64      `json:"duration_ms"`
	Stdout       string     `json:"stdout,omitempty"`
	Stderr       string     `json:"stderr,omitempty"`
	Artifacts    []Artifact `json:"artifacts"`
	OutputPrefix string     `json:"output_prefix,omitempty"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at"`
}

// Markdown renders the summary document handed to the reporting surface.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("# entry-remove run summary\n\n")
	fmt.Fprintf(&b, "**Run:** `%s`\n\n", s.RunID)
	fmt.Fprintf(&b, "**Status:** `%s`\n\n", s.Status)
	fmt.Fprintf(&b, "**Exit code:** `%d`\n\n", s.ExitCode)
	fmt.Fprintf(&b, "**Duration:** %dms\n", s.DurationMs)
	if s.Error != "" {
		fmt.Fprintf(&b, "\n**Error:** %s\n", s.Error)
	}
	if s.Stdout != "" {
		b.WriteString("\n## Stdout\n```\n")
		b.WriteString(s.Stdout)
		if !strings.HasSuffix(s.Stdout, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n")
	}
	if s.Stderr != "" {
		b.WriteString("\n## Stderr\n```\n")
		b.WriteString(s.Stderr)
		if !strings.HasSuffix(s.Stderr, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n")
	}
	if len(s.Artifacts) > 0 {
		b.WriteString("\n## Artifacts\n")
		for _, artifact := range s.Artifacts {
			switch {
			case artifact.Relocated:
				fmt.Fprintf(&b, "- ✓ `%s` → `%s`\n", artifact.Path, artifact.Destination)
			case artifact.Error != "":
				fmt.Fprintf(&b, "- ✗ `%s` → `%s` (%s)\n", artifact.Path, artifact.Destination, artifact.Error)
			default:
				fmt.Fprintf(&b, "- ✓ `%s` (local only)\n", artifact.Path)
			}
		}
	}
	return b.String()
}

// Sink receives run summaries. Publishing is best-effort and additive;
// a sink failure never fails the run.
type Sink interface {
	Publish(ctx context.Context, summary Summary) error
}

// HTTPSink posts summaries as JSON to a reporting endpoint.
type HTTPSink struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewHTTPSink(endpoint string, logger *slog.Logger) (*HTTPSink, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("reporting endpoint is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}, nil
}

func (s *HTTPSink) Publish(ctx context.Context, summary Summary) error {
	payload := struct {
		Summary
		Markdown string `json:"markdown"`
	}{Summary: summary, Markdown: summary.Markdown()}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("publish summary: unexpected status %s", resp.Status)
	}
	return nil
}
