package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ccdi-ops/entremove-orchestrator/internal/storage"
)

// Fetcher is the storage capability the resolver needs: download one remote
// object into a directory and return the local path.
type Fetcher interface {
	Fetch(ctx context.Context, loc storage.Locator, destDir string) (string, error)
}

// ResolvedInput binds a slot to a concrete local file path.
type ResolvedInput struct {
	Slot        Slot
	Path        string
	FromStorage bool
	Source      string
}

// Resolved is the full working set handed to the process runner. Template
// may be empty when the template slot is optional and unset.
type Resolved struct {
	Manifest ResolvedInput
	Template ResolvedInput
	Entries  ResolvedInput
}

type ResolverConfig struct {
	// Strict rejects dual-specified slots instead of applying storage-key
	// precedence.
	Strict bool
	// TemplateRequired mirrors the external program's contract. Manifest
	// and entries are always required.
	TemplateRequired bool
}

type Resolver struct {
	fetcher Fetcher
	cfg     ResolverConfig
	logger  *slog.Logger
}

func NewResolver(fetcher Fetcher, cfg ResolverConfig, logger *slog.Logger) (*Resolver, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{fetcher: fetcher, cfg: cfg, logger: logger}, nil
}

// Resolve binds every slot to a local path, fetching remote sources into
// destDir. Slots resolve concurrently; the first failure cancels the rest
// and aborts the run before execution. All-or-nothing.
func (r *Resolver) Resolve(ctx context.Context, params Params, destDir string) (Resolved, error) {
	slots := []struct {
		slot     Slot
		required bool
	}{
		{SlotManifest, true},
		{SlotTemplate, r.cfg.TemplateRequired},
		{SlotEntries, true},
	}

	results := make([]ResolvedInput, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range slots {
		g.Go(func() error {
			bound, err := r.resolveSlot(gctx, params, s.slot, s.required, destDir)
			if err != nil {
				return err
			}
			results[i] = bound
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Resolved{}, err
	}

	return Resolved{Manifest: results[0], Template: results[1], Entries: results[2]}, nil
}

func (r *Resolver) resolveSlot(ctx context.Context, params Params, slot Slot, required bool, destDir string) (ResolvedInput, error) {
	path, key := params.Source(slot)

	if path != "" && key != "" {
		if r.cfg.Strict {
			return ResolvedInput{}, fmt.Errorf("%w: %s", ErrAmbiguousInput, slot)
		}
		// S3-first: the storage key overrides the local path.
		r.logger.Warn("slot has both path and key, using storage key", "slot", string(slot), "key", key)
		path = ""
	}

	switch {
	case key != "":
		loc, err := storage.ForKey(params.Bucket, key)
		if err != nil {
			return ResolvedInput{}, fmt.Errorf("resolve %s: %w", slot, err)
		}
		// Each slot fetches into its own subdirectory so keys that share a
		// base name cannot clobber each other.
		local, err := r.fetcher.Fetch(ctx, loc, filepath.Join(destDir, string(slot)))
		if err != nil {
			return ResolvedInput{}, fmt.Errorf("resolve %s: %w", slot, err)
		}
		return ResolvedInput{Slot: slot, Path: local, FromStorage: true, Source: loc.String()}, nil

	case path != "":
		if err := checkReadable(path); err != nil {
			return ResolvedInput{}, fmt.Errorf("resolve %s: %w", slot, err)
		}
		return ResolvedInput{Slot: slot, Path: path, Source: path}, nil

	case required:
		return ResolvedInput{}, fmt.Errorf("%w: %s", ErrMissingInput, slot)

	default:
		return ResolvedInput{Slot: slot}, nil
	}
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file", path)
	}
	return nil
}
