package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// slotFlags is the external program's fixed CLI contract: one flag per
// logical input slot.
var slotFlags = map[Slot]string{
	SlotManifest: "-f",
	SlotTemplate: "-t",
	SlotEntries:  "-e",
}

// ExecutionResult is the observed outcome of one invocation. A non-zero
// exit code is data here, not an orchestrator fault.
type ExecutionResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

type RunnerConfig struct {
	// Bin is the executable, e.g. "python3" or an entry-remove binary.
	Bin string
	// Args are fixed leading arguments, e.g. the script path when Bin is
	// an interpreter.
	Args []string
	// Timeout bounds the child's wall-clock time. Zero means no limit.
	Timeout time.Duration
	// TailCapBytes bounds each captured stream to its last N bytes.
	TailCapBytes int64
}

const defaultTailCapBytes = 64 * 1024

type Runner struct {
	cfg    RunnerConfig
	logger *slog.Logger
}

func NewRunner(cfg RunnerConfig, logger *slog.Logger) (*Runner, error) {
	cfg.Bin = strings.TrimSpace(cfg.Bin)
	if cfg.Bin == "" {
		return nil, fmt.Errorf("program binary is required")
	}
	if cfg.TailCapBytes <= 0 {
		cfg.TailCapBytes = defaultTailCapBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}, nil
}

// Run executes the external program against the resolved working set with
// the workspace as working directory. On timeout the whole process group is
// terminated so grandchildren do not survive the run.
func (r *Runner) Run(ctx context.Context, resolved Resolved, workdir string) (ExecutionResult, error) {
	args := append([]string{}, r.cfg.Args...)
	for _, input := range []ResolvedInput{resolved.Manifest, resolved.Template, resolved.Entries} {
		if input.Path == "" {
			continue
		}
		args = append(args, slotFlags[input.Slot], input.Path)
	}

	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	stdout := newTailBuffer(r.cfg.TailCapBytes)
	stderr := newTailBuffer(r.cfg.TailCapBytes)

	cmd := exec.CommandContext(runCtx, r.cfg.Bin, args...)
	cmd.Dir = workdir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	r.logger.Info("executing external program", "bin", r.cfg.Bin, "args", strings.Join(args, " "), "workdir", workdir)

	start := time.Now()
	err := cmd.Run()
	result := ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1
		r.logger.Warn("external program timed out", "timeout", r.cfg.Timeout.String())
		return result, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("run external program: %w", err)
	}

	r.logger.Info("external program finished", "exit_code", result.ExitCode, "duration_ms", result.Duration.Milliseconds())
	return result, nil
}

const truncationMarker = "...[truncated]\n"

// tailBuffer keeps only the last cap bytes written so long-running jobs
// cannot grow the captured streams without bound.
type tailBuffer struct {
	mu        sync.Mutex
	cap       int64
	buf       []byte
	truncated bool
}

func newTailBuffer(cap int64) *tailBuffer {
	return &tailBuffer{cap: cap}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if int64(len(b.buf)) > b.cap {
		b.buf = b.buf[int64(len(b.buf))-b.cap:]
		b.truncated = true
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return truncationMarker + string(b.buf)
	}
	return string(b.buf)
}
