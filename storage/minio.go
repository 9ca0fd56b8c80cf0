package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"melody/config"
	"melody/logger"
)

// MinioStore is a Store backed by a MinIO (S3-compatible) bucket.
type MinioStore struct {
	client    *minio.Client
	endpoint  string
	bucket    string
	useSSL    bool
	cdnDomain string
}

// NewMinioStore connects to MinIO and ensures the configured bucket exists.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, errors.Wrapf(ErrUpstream, "check bucket: %v", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, errors.Wrapf(ErrUpstream, "create bucket: %v", err)
		}
		logger.Info("created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioStore{
		client:    client,
		endpoint:  cfg.MinioEndpoint,
		bucket:    cfg.MinioBucket,
		useSSL:    cfg.MinioUseSSL,
		cdnDomain: cfg.CDNDomain,
	}, nil
}

// Upload stores the blob and returns its public URL.
func (s *MinioStore) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrapf(ErrUpstream, "put object %s: %v", objectName, err)
	}

	logger.Info("object uploaded",
		logger.String("object", objectName),
		logger.Int("size", len(data)))
	return s.PublicURL(objectName), nil
}

// PublicURL builds the object URL from the CDN domain when configured,
// falling back to the store endpoint.
func (s *MinioStore) PublicURL(objectName string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s/%s", s.cdnDomain, s.bucket, objectName)
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, objectName)
}

// ListObjects walks the bucket under prefix and reports each object to fn.
// Used by the storage maintenance command.
func (s *MinioStore) ListObjects(ctx context.Context, prefix string, fn func(name string, size int64)) error {
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return errors.Wrapf(ErrUpstream, "list objects: %v", object.Err)
		}
		fn(object.Key, object.Size)
	}
	return nil
}
