package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ccdi-ops/entremove-orchestrator/internal/ledger"
	"github.com/ccdi-ops/entremove-orchestrator/internal/platform/env"
	platformstore "github.com/ccdi-ops/entremove-orchestrator/internal/platform/objectstore"
	"github.com/ccdi-ops/entremove-orchestrator/internal/platform/postgres"
	"github.com/ccdi-ops/entremove-orchestrator/internal/run"
	"github.com/ccdi-ops/entremove-orchestrator/internal/storage"
	"github.com/ccdi-ops/entremove-orchestrator/internal/storage/objectstore"
	"github.com/ccdi-ops/entremove-orchestrator/internal/workspace"
)

// Orchestrator exit codes. A run that reached the external program mirrors
// its exit code; resolution failures and timeouts stay distinguishable.
const (
	exitOK         = 0
	exitInternal   = 1
	exitConfig     = 2
	exitResolution = 3
	exitTimeout    = 4
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "serve" {
		os.Exit(serveMain(ctx, logger, args[1:]))
	}
	if len(args) > 0 && args[0] == "run" {
		args = args[1:]
	}
	os.Exit(runMain(ctx, logger, args))
}

func runMain(ctx context.Context, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	paramsFile := fs.String("params", "", "YAML parameter file")
	manifestPath := fs.String("manifest", "", "local manifest path")
	manifestKey := fs.String("manifest-key", "", "manifest object key or s3:// URI")
	templatePath := fs.String("template", "", "local template path")
	templateKey := fs.String("template-key", "", "template object key or s3:// URI")
	entriesPath := fs.String("entries", "", "local entries path")
	entriesKey := fs.String("entries-key", "", "entries object key or s3:// URI")
	bucket := fs.String("bucket", "", "bucket for bare object keys")
	outputPrefix := fs.String("output", "", "output destination: s3:// prefix, bare key prefix, or local directory")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}

	params := run.Params{}
	if *paramsFile != "" {
		loaded, err := run.LoadParamsFile(*paramsFile)
		if err != nil {
			logger.Error("invalid params file", "error", err)
			return exitConfig
		}
		params = loaded
	}
	overlay(&params.ManifestPath, *manifestPath)
	overlay(&params.ManifestKey, *manifestKey)
	overlay(&params.TemplatePath, *templatePath)
	overlay(&params.TemplateKey, *templateKey)
	overlay(&params.EntriesPath, *entriesPath)
	overlay(&params.EntriesKey, *entriesKey)
	overlay(&params.Bucket, *bucket)
	overlay(&params.OutputPrefix, *outputPrefix)

	orch, _, cleanup, err := buildOrchestrator(ctx, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitConfig
	}
	defer cleanup()

	summary, execErr := orch.Execute(ctx, params)
	fmt.Println(summary.Markdown())
	if execErr != nil {
		logger.Error("run failed", "status", string(summary.Status), "error", execErr)
	}

	switch summary.Status {
	case run.StatusSucceeded:
		return exitOK
	case run.StatusNonZeroExit:
		if summary.ExitCode > 0 {
			return summary.ExitCode
		}
		return exitInternal
	case run.StatusTimedOut:
		return exitTimeout
	case run.StatusResolutionFailed:
		return exitResolution
	default:
		return exitInternal
	}
}

// resolveScript anchors a relative script path to the orchestrator's own
// working directory. The child process runs inside the per-run workspace,
// where a relative path would never resolve.
func resolveScript(script string) (string, error) {
	if filepath.IsAbs(script) {
		return script, nil
	}
	return filepath.Abs(script)
}

func overlay(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// buildOrchestrator wires the orchestrator from the environment. The object
// store and the run ledger are optional: without credentials the adapter
// only serves local paths, without a database URL no ledger rows are written.
// The store handle is returned separately so serve mode can probe it.
func buildOrchestrator(ctx context.Context, logger *slog.Logger) (*run.Orchestrator, *objectstore.MinioStore, func(), error) {
	cleanup := func() {}

	var store objectstore.Store
	var minioStore *objectstore.MinioStore
	if env.String("ENTREMOVE_S3_ACCESS_KEY", "") != "" {
		storeCfg, err := platformstore.ConfigFromEnv()
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("object store config: %w", err)
		}
		minioStore, err = objectstore.NewMinioStore(storeCfg)
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("object store client: %w", err)
		}
		store = minioStore
	} else {
		logger.Info("no object store credentials, remote locators disabled")
	}
	adapter := storage.NewAdapter(store, logger)

	strict, err := env.Bool("ENTREMOVE_STRICT_SLOTS", false)
	if err != nil {
		return nil, nil, cleanup, err
	}
	templateRequired, err := env.Bool("ENTREMOVE_TEMPLATE_REQUIRED", true)
	if err != nil {
		return nil, nil, cleanup, err
	}
	resolver, err := run.NewResolver(adapter, run.ResolverConfig{Strict: strict, TemplateRequired: templateRequired}, logger)
	if err != nil {
		return nil, nil, cleanup, err
	}

	timeout, err := env.Duration("ENTREMOVE_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, nil, cleanup, err
	}
	tailCap, err := env.Int64("ENTREMOVE_TAIL_CAP_BYTES", 64*1024)
	if err != nil {
		return nil, nil, cleanup, err
	}
	runnerCfg := run.RunnerConfig{
		Bin:          env.String("ENTREMOVE_BIN", "python3"),
		Timeout:      timeout,
		TailCapBytes: tailCap,
	}
	if script := env.String("ENTREMOVE_SCRIPT", "entry_remove.py"); script != "" {
		abs, err := resolveScript(script)
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("script path: %w", err)
		}
		runnerCfg.Args = []string{abs}
	}
	runner, err := run.NewRunner(runnerCfg, logger)
	if err != nil {
		return nil, nil, cleanup, err
	}

	collector, err := run.NewCollector(adapter, run.CollectorConfig{
		Marker:    env.String("ENTREMOVE_OUTPUT_MARKER", ""),
		Extension: env.String("ENTREMOVE_OUTPUT_EXT", ""),
	}, logger)
	if err != nil {
		return nil, nil, cleanup, err
	}

	var sink run.Sink
	if reportURL := env.String("ENTREMOVE_REPORT_URL", ""); reportURL != "" {
		httpSink, err := run.NewHTTPSink(reportURL, logger)
		if err != nil {
			return nil, nil, cleanup, err
		}
		sink = httpSink
	}

	var recorder ledger.Recorder
	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		return nil, nil, cleanup, err
	}
	if dbCfg.Enabled() {
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("ledger database: %w", err)
		}
		cleanup = func() { _ = db.Close() }
		pg, err := ledger.NewPostgresRecorder(db)
		if err != nil {
			return nil, nil, cleanup, err
		}
		recorder = pg
	}

	workspaces := workspace.NewManager(env.String("ENTREMOVE_WORKSPACE_ROOT", ""))

	orch, err := run.NewOrchestrator(workspaces, resolver, runner, collector, sink, recorder, logger)
	if err != nil {
		return nil, nil, cleanup, err
	}
	return orch, minioStore, cleanup, nil
}
