package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Manager allocates run-scoped working directories. Each directory carries
// a run-unique suffix so concurrent runs never collide.
type Manager struct {
	root string
}

func NewManager(root string) *Manager {
	root = strings.TrimSpace(root)
	if root == "" {
		root = os.TempDir()
	}
	return &Manager{root: root}
}

// Workspace is an exclusively-owned, disposable directory. All resolved
// inputs and produced outputs live under Dir until collection.
type Workspace struct {
	ID  string
	Dir string
}

func (m *Manager) Acquire() (*Workspace, error) {
	if m == nil {
		return nil, errors.New("workspace manager not initialized")
	}
	id := uuid.NewString()
	dir := filepath.Join(m.root, "entremove-"+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("acquire workspace: %w", err)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

// Release removes the workspace and everything under it. Idempotent, and
// must run on every exit path of a run.
func (w *Workspace) Release() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("release workspace %s: %w", w.Dir, err)
	}
	return nil
}
