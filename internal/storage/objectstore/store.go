package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a referenced object that does not exist. For a
// required input this is a configuration error, not a transient fault.
var ErrNotFound = errors.New("object not found")

// ErrUnavailable reports an unreachable storage backend.
var ErrUnavailable = errors.New("object storage unavailable")

// Store abstracts S3-compatible object storage.
type Store interface {
	FetchObject(ctx context.Context, bucket, key, destPath string) error
	PutFile(ctx context.Context, bucket, key, srcPath string) error
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}
