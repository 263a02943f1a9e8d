package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ccdi-ops/entremove-orchestrator/internal/storage"
)

// Storer is the storage capability the collector needs: place one local
// file under a destination prefix.
type Storer interface {
	Store(ctx context.Context, srcPath string, destPrefix storage.Locator) (storage.Locator, error)
}

// Artifact records one matched output file and, when a destination was
// given, the outcome of its relocation.
type Artifact struct {
	Path        string `json:"path"`
	Destination string `json:"destination,omitempty"`
	Relocated   bool   `json:"relocated"`
	Error       string `json:"error,omitempty"`
}

type CollectorConfig struct {
	// Marker is the case-sensitive substring the program stamps into
	// output file names.
	Marker string
	// Extension the output files carry, including the dot.
	Extension string
}

const (
	defaultMarker    = "_EntRemove"
	defaultExtension = ".xlsx"
)

type Collector struct {
	storer Storer
	cfg    CollectorConfig
	logger *slog.Logger
}

func NewCollector(storer Storer, cfg CollectorConfig, logger *slog.Logger) (*Collector, error) {
	if storer == nil {
		return nil, fmt.Errorf("storer is required")
	}
	if cfg.Marker == "" {
		cfg.Marker = defaultMarker
	}
	if cfg.Extension == "" {
		cfg.Extension = defaultExtension
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{storer: storer, cfg: cfg, logger: logger}, nil
}

// Collect scans the top level of root for output files and, when dest is
// non-nil, relocates each match. A per-file relocation failure is recorded
// on that artifact and does not abort the rest of the batch.
func (c *Collector) Collect(ctx context.Context, root string, dest *storage.Locator) ([]Artifact, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan output root: %w", err)
	}

	var matched []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.Contains(name, c.cfg.Marker) && strings.HasSuffix(name, c.cfg.Extension) {
			matched = append(matched, filepath.Join(root, name))
		}
	}

	artifacts := make([]Artifact, len(matched))
	if dest == nil {
		for i, path := range matched {
			artifacts[i] = Artifact{Path: path}
		}
		c.logger.Info("outputs left in place", "count", len(artifacts))
		return artifacts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range matched {
		g.Go(func() error {
			target, storeErr := c.storer.Store(gctx, path, *dest)
			if storeErr != nil {
				c.logger.Error("artifact relocation failed", "path", path, "error", storeErr)
				artifacts[i] = Artifact{Path: path, Destination: dest.Child(filepath.Base(path)).String(), Error: storeErr.Error()}
				return nil
			}
			artifacts[i] = Artifact{Path: path, Destination: target.String(), Relocated: true}
			return nil
		})
	}
	_ = g.Wait()

	return artifacts, nil
}
