package run

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ccdi-ops/entremove-orchestrator/internal/storage"
	"github.com/ccdi-ops/entremove-orchestrator/internal/workspace"
)

// Drives a full run with the real resolver, runner and collector against
// local storage and a fake entry-remove script.
func TestFullRunLocalToLocal(t *testing.T) {
	script := writeScript(t, `echo "removing entries"
printf 'result-bytes' > manifest_EntRemove20240101.xlsx
exit 0
`)

	adapter := storage.NewAdapter(nil, nil)
	resolver, err := NewResolver(adapter, ResolverConfig{TemplateRequired: true}, nil)
	if err != nil {
		t.Fatalf("NewResolver() err=%v", err)
	}
	runner, err := NewRunner(RunnerConfig{Bin: script, Timeout: 30 * time.Second}, nil)
	if err != nil {
		t.Fatalf("NewRunner() err=%v", err)
	}
	collector, err := NewCollector(adapter, CollectorConfig{}, nil)
	if err != nil {
		t.Fatalf("NewCollector() err=%v", err)
	}

	wsRoot := t.TempDir()
	orch, err := NewOrchestrator(workspace.NewManager(wsRoot), resolver, runner, collector, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator() err=%v", err)
	}

	inputDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	summary, err := orch.Execute(context.Background(), Params{
		ManifestPath: writeInput(t, inputDir, "manifest.xlsx"),
		TemplatePath: writeInput(t, inputDir, "template.xlsx"),
		EntriesPath:  writeInput(t, inputDir, "entries.tsv"),
		OutputPrefix: outDir,
	})
	if err != nil {
		t.Fatalf("Execute() err=%v", err)
	}
	if summary.Status != StatusSucceeded {
		t.Fatalf("Status=%s, error=%s", summary.Status, summary.Error)
	}
	if len(summary.Artifacts) != 1 {
		t.Fatalf("Artifacts=%d, want 1", len(summary.Artifacts))
	}
	artifact := summary.Artifacts[0]
	if !artifact.Relocated {
		t.Fatalf("artifact not relocated: %+v", artifact)
	}

	body, err := os.ReadFile(filepath.Join(outDir, "manifest_EntRemove20240101.xlsx"))
	if err != nil {
		t.Fatalf("read relocated artifact: %v", err)
	}
	if string(body) != "result-bytes" {
		t.Fatalf("relocated bytes=%q", body)
	}

	entries, err := os.ReadDir(wsRoot)
	if err != nil {
		t.Fatalf("read workspace root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace left behind after run: %v", entries)
	}
}
