package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	m := NewManager(t.TempDir())

	ws, err := m.Acquire()
	if err != nil {
		t.Fatalf("Acquire() err=%v", err)
	}
	if ws.ID == "" {
		t.Fatalf("Acquire() empty id")
	}
	info, err := os.Stat(ws.Dir)
	if err != nil {
		t.Fatalf("workspace dir missing: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("workspace is not a directory")
	}

	if err := os.WriteFile(filepath.Join(ws.Dir, "scratch.tmp"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write scratch: %v", err)
	}

	if err := ws.Release(); err != nil {
		t.Fatalf("Release() err=%v", err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatalf("workspace still present after release")
	}

	// Idempotent.
	if err := ws.Release(); err != nil {
		t.Fatalf("second Release() err=%v", err)
	}
}

func TestAcquireUnique(t *testing.T) {
	m := NewManager(t.TempDir())
	a, err := m.Acquire()
	if err != nil {
		t.Fatalf("Acquire() err=%v", err)
	}
	b, err := m.Acquire()
	if err != nil {
		t.Fatalf("Acquire() err=%v", err)
	}
	if a.Dir == b.Dir {
		t.Fatalf("workspaces collide: %s", a.Dir)
	}
	_ = a.Release()
	_ = b.Release()
}
