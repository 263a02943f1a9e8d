package objectstore

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	platformstore "github.com/ccdi-ops/entremove-orchestrator/internal/platform/objectstore"
	"github.com/minio/minio-go/v7"
)

type MinioStore struct {
	client *minio.Client
	bucket string
	region string
}

func NewMinioStore(cfg platformstore.Config) (*MinioStore, error) {
	client, err := platformstore.NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

func NewMinioStoreWithClient(client *minio.Client, bucket, region string) (*MinioStore, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client is required")
	}
	return &MinioStore{client: client, bucket: bucket, region: region}, nil
}

// Bucket returns the default bucket, empty when callers address buckets
// explicitly via s3:// locators.
func (s *MinioStore) Bucket() string {
	if s == nil {
		return ""
	}
	return s.bucket
}

// EnsureBucket provisions the default bucket if it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("minio store not initialized")
	}
	if s.bucket == "" {
		return fmt.Errorf("no default bucket configured")
	}
	if err := platformstore.EnsureBucket(ctx, s.client, s.bucket, s.region); err != nil {
		return classify(err)
	}
	return nil
}

// Ready probes the backend for readiness reporting: the endpoint must
// answer and the default bucket must exist.
func (s *MinioStore) Ready(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("minio store not initialized")
	}
	if s.bucket == "" {
		return fmt.Errorf("no default bucket configured")
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return classify(err)
	}
	if !exists {
		return fmt.Errorf("%w: bucket %s", ErrNotFound, s.bucket)
	}
	return nil
}

func (s *MinioStore) FetchObject(ctx context.Context, bucket, key, destPath string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("minio store not initialized")
	}
	// Stat first so a missing object is reported before any partial download.
	if _, err := s.Stat(ctx, bucket, key); err != nil {
		return err
	}
	if err := s.client.FGetObject(ctx, bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return classify(err)
	}
	return nil
}

func (s *MinioStore) PutFile(ctx context.Context, bucket, key, srcPath string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("minio store not initialized")
	}
	contentType := mime.TypeByExtension(filepath.Ext(srcPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.FPutObject(ctx, bucket, key, srcPath, opts); err != nil {
		return classify(err)
	}
	return nil
}

func (s *MinioStore) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	if s == nil || s.client == nil {
		return ObjectInfo{}, fmt.Errorf("minio store not initialized")
	}
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, classify(err)
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

func (s *MinioStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("minio store not initialized")
	}
	var out []ObjectInfo
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, classify(obj.Err)
		}
		out = append(out, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

// classify maps minio errors onto the store's taxonomy: a missing object
// or bucket is ErrNotFound, everything else is ErrUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
}
