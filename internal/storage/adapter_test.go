package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ccdi-ops/entremove-orchestrator/internal/storage/objectstore"
)

type stubStore struct {
	fetchCalls int
	putCalls   int
	putBucket  string
	putKey     string
	fetchErr   error
	putErr     error
	objects    map[string][]byte
}

func (s *stubStore) FetchObject(ctx context.Context, bucket, key, destPath string) error {
	s.fetchCalls++
	if s.fetchErr != nil {
		return s.fetchErr
	}
	body, ok := s.objects[bucket+"/"+key]
	if !ok {
		return objectstore.ErrNotFound
	}
	return os.WriteFile(destPath, body, 0o644)
}

func (s *stubStore) PutFile(ctx context.Context, bucket, key, srcPath string) error {
	s.putCalls++
	s.putBucket = bucket
	s.putKey = key
	return s.putErr
}

func (s *stubStore) Stat(ctx context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	if _, ok := s.objects[bucket+"/"+key]; !ok {
		return objectstore.ObjectInfo{}, objectstore.ErrNotFound
	}
	return objectstore.ObjectInfo{Key: key}, nil
}

func (s *stubStore) List(ctx context.Context, bucket, prefix string) ([]objectstore.ObjectInfo, error) {
	return nil, nil
}

func TestFetchRemote(t *testing.T) {
	store := &stubStore{objects: map[string][]byte{
		"b/in/manifest.xlsx": []byte("workbook-bytes"),
	}}
	adapter := NewAdapter(store, nil)

	dir := t.TempDir()
	got, err := adapter.Fetch(context.Background(), Locator{Bucket: "b", Key: "in/manifest.xlsx"}, dir)
	if err != nil {
		t.Fatalf("Fetch() err=%v", err)
	}
	if got != filepath.Join(dir, "manifest.xlsx") {
		t.Fatalf("Fetch() path=%q", got)
	}
	body, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read fetched file: %v", err)
	}
	if string(body) != "workbook-bytes" {
		t.Fatalf("fetched bytes=%q", body)
	}
}

func TestFetchRejectsLocalLocator(t *testing.T) {
	adapter := NewAdapter(&stubStore{}, nil)
	if _, err := adapter.Fetch(context.Background(), Locator{Path: "/tmp/x"}, t.TempDir()); err == nil {
		t.Fatalf("Fetch() expected error for local locator")
	}
}

func TestFetchNotFound(t *testing.T) {
	store := &stubStore{objects: map[string][]byte{}}
	adapter := NewAdapter(store, nil)
	_, err := adapter.Fetch(context.Background(), Locator{Bucket: "b", Key: "missing"}, t.TempDir())
	if !errors.Is(err, objectstore.ErrNotFound) {
		t.Fatalf("Fetch() err=%v, want ErrNotFound", err)
	}
}

func TestStoreLocalRoundTrip(t *testing.T) {
	adapter := NewAdapter(nil, nil)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "manifest_EntRemove20240101.xlsx")
	if err := os.WriteFile(src, []byte("result-bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	destDir := filepath.Join(t.TempDir(), "out")
	dest, err := adapter.Store(context.Background(), src, Locator{Path: destDir})
	if err != nil {
		t.Fatalf("Store() err=%v", err)
	}
	body, err := os.ReadFile(dest.Path)
	if err != nil {
		t.Fatalf("read relocated file: %v", err)
	}
	if string(body) != "result-bytes" {
		t.Fatalf("relocated bytes=%q", body)
	}
}

func TestStoreRemoteUsesPrefix(t *testing.T) {
	store := &stubStore{}
	adapter := NewAdapter(store, nil)

	src := filepath.Join(t.TempDir(), "manifest_EntRemove20240101.xlsx")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	dest, err := adapter.Store(context.Background(), src, Locator{Bucket: "b", Key: "results/run-1"})
	if err != nil {
		t.Fatalf("Store() err=%v", err)
	}
	if store.putCalls != 1 {
		t.Fatalf("putCalls=%d", store.putCalls)
	}
	if dest.String() != "s3://b/results/run-1/manifest_EntRemove20240101.xlsx" {
		t.Fatalf("dest=%q", dest.String())
	}
}
