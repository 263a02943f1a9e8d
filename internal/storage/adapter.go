package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/ccdi-ops/entremove-orchestrator/internal/storage/objectstore"
)

// Adapter is the single component that touches a physical storage backend.
// Downstream components only ever see local paths.
type Adapter struct {
	store  objectstore.Store
	logger *slog.Logger
}

func NewAdapter(store objectstore.Store, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{store: store, logger: logger}
}

// Fetch downloads a remote object into destDir and returns the local path.
// Every fetch goes to the backend; there is no caching. Local locators do
// not pass through here, the resolver binds those directly.
func (a *Adapter) Fetch(ctx context.Context, loc Locator, destDir string) (string, error) {
	if a == nil {
		return "", errors.New("storage adapter not initialized")
	}
	if !loc.IsRemote() {
		return "", fmt.Errorf("fetch requires a remote locator, got %q", loc.String())
	}
	if a.store == nil {
		return "", fmt.Errorf("%w: no object store configured", objectstore.ErrUnavailable)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	destPath := filepath.Join(destDir, path.Base(loc.Key))
	if err := a.store.FetchObject(ctx, loc.Bucket, loc.Key, destPath); err != nil {
		return "", fmt.Errorf("fetch %s: %w", loc.String(), err)
	}
	a.logger.Info("fetched input", "source", loc.String(), "dest", destPath)
	return destPath, nil
}

// Store relocates a local file under the destination prefix, preserving only
// the file's base name. Returns the locator the file ended up at.
func (a *Adapter) Store(ctx context.Context, srcPath string, destPrefix Locator) (Locator, error) {
	if a == nil {
		return Locator{}, errors.New("storage adapter not initialized")
	}
	dest := destPrefix.Child(filepath.Base(srcPath))
	if dest.IsRemote() {
		if a.store == nil {
			return Locator{}, fmt.Errorf("%w: no object store configured", objectstore.ErrUnavailable)
		}
		if err := a.store.PutFile(ctx, dest.Bucket, dest.Key, srcPath); err != nil {
			return Locator{}, fmt.Errorf("store %s: %w", dest.String(), err)
		}
		return dest, nil
	}
	if err := copyFile(srcPath, dest.Path); err != nil {
		return Locator{}, fmt.Errorf("store %s: %w", dest.String(), err)
	}
	return dest, nil
}

// List enumerates locators under a prefix. Diagnostics only, not on the
// run's hot path.
func (a *Adapter) List(ctx context.Context, prefix Locator) ([]Locator, error) {
	if a == nil {
		return nil, errors.New("storage adapter not initialized")
	}
	if prefix.IsRemote() {
		if a.store == nil {
			return nil, fmt.Errorf("%w: no object store configured", objectstore.ErrUnavailable)
		}
		infos, err := a.store.List(ctx, prefix.Bucket, prefix.Key)
		if err != nil {
			return nil, err
		}
		out := make([]Locator, 0, len(infos))
		for _, info := range infos {
			out = append(out, Locator{Bucket: prefix.Bucket, Key: info.Key})
		}
		return out, nil
	}

	entries, err := os.ReadDir(prefix.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", objectstore.ErrNotFound, prefix.Path)
		}
		return nil, err
	}
	out := make([]Locator, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		out = append(out, Locator{Path: filepath.Join(prefix.Path, entry.Name())})
	}
	return out, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
