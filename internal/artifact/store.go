// Package artifact offloads large workload outputs to a backing store so
// API responses stay small. Outputs below the gateway's inline limit never
// reach this package.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store persists one output blob and returns a stable artifact URI.
type Store interface {
	Put(ctx context.Context, workloadID string, data []byte) (string, error)
}

// LocalStore writes outputs under a root directory.
type LocalStore struct {
	Root string
}

func NewLocalStore(root string) *LocalStore {
	if strings.TrimSpace(root) == "" {
		root = filepath.Join(os.TempDir(), "ngen-artifacts")
	}
	return &LocalStore{Root: root}
}

func (s *LocalStore) Put(_ context.Context, workloadID string, data []byte) (string, error) {
	dir := filepath.Join(s.Root, workloadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "output.txt")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("artifact://%s/output.txt", workloadID), nil
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore uploads outputs to an S3-compatible bucket, creating the
// bucket on first use.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = "ngen-artifacts"
	}
	return &MinIOStore{client: client, bucket: bucket}, nil
}

func (s *MinIOStore) Put(ctx context.Context, workloadID string, data []byte) (string, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", err
		}
	}
	objectName := fmt.Sprintf("%s/output.txt", workloadID)
	_, err = s.client.PutObject(ctx, s.bucket, objectName,
		strings.NewReader(string(data)), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("artifact://s3/%s/%s", s.bucket, objectName), nil
}
