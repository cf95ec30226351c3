package separation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"stemdeck/internal/config"
)

const s3Scheme = "s3"

// ObjectStore stores uploaded inputs and serves s3:// stem references.
type ObjectStore interface {
	// Put uploads r under key in the configured bucket and returns its s3:// URL.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// MinioStore is an ObjectStore backed by an S3-compatible endpoint.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the endpoint in cfg.
func NewMinioStore(cfg config.Storage) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("object store endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// Put implements ObjectStore.
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: true,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return S3URL(s.bucket, key), nil
}

// Get implements ObjectStore.
func (s *MinioStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" {
		bucket = s.bucket
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	return buf.Bytes(), nil
}

// S3URL formats an s3://bucket/key reference.
func S3URL(bucket, key string) string {
	return s3Scheme + "://" + bucket + "/" + strings.TrimLeft(key, "/")
}

// ParseS3URL splits an s3://bucket/key reference.
func ParseS3URL(raw string) (bucket, key string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Scheme, s3Scheme) || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimLeft(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}
