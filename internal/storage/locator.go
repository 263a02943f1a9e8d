package storage

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

const s3Scheme = "s3://"

// Locator is a tagged reference to either an object in storage or a local
// filesystem path. Exactly one side is populated; IsRemote distinguishes them.
type Locator struct {
	Bucket string
	Key    string
	Path   string
}

// ParseLocator accepts either an s3://bucket/key URI or a local path.
// The canonical form round-trips: ParseLocator(s).String() == s for
// canonical inputs.
func ParseLocator(raw string) (Locator, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Locator{}, errors.New("locator is required")
	}
	if !strings.HasPrefix(raw, s3Scheme) {
		if strings.Contains(raw, "://") {
			return Locator{}, fmt.Errorf("unsupported locator scheme: %q", raw)
		}
		return Locator{Path: raw}, nil
	}

	rest := strings.TrimPrefix(raw, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || strings.TrimSpace(bucket) == "" || strings.TrimSpace(key) == "" {
		return Locator{}, fmt.Errorf("s3 locator must be s3://bucket/key: %q", raw)
	}
	return Locator{Bucket: bucket, Key: key}, nil
}

// ForKey builds a remote locator from a bare object key and a bucket, the
// shape schedulers pass when they supply manifest_key plus s3_bucket.
func ForKey(bucket, key string) (Locator, error) {
	bucket = strings.TrimSpace(bucket)
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return Locator{}, errors.New("object key is required")
	}
	if strings.HasPrefix(key, s3Scheme) {
		return ParseLocator(key)
	}
	if bucket == "" {
		return Locator{}, fmt.Errorf("bucket is required for key %q", key)
	}
	return Locator{Bucket: bucket, Key: key}, nil
}

func (l Locator) IsRemote() bool {
	return l.Bucket != ""
}

func (l Locator) IsZero() bool {
	return l.Bucket == "" && l.Key == "" && l.Path == ""
}

func (l Locator) String() string {
	if l.IsRemote() {
		return s3Scheme + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// Child treats the locator as a prefix and appends a file's base name,
// which is how output relocation targets are addressed.
func (l Locator) Child(name string) Locator {
	if l.IsRemote() {
		return Locator{Bucket: l.Bucket, Key: path.Join(l.Key, name)}
	}
	return Locator{Path: filepath.Join(l.Path, name)}
}
