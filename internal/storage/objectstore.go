package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ObjectStore keeps project file and image blobs in a MinIO bucket; Postgres
// rows hold only the object keys.
type ObjectStore struct {
	client *minio.Client
	bucket string
	log    zerolog.Logger
}

func NewObjectStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, log zerolog.Logger) (*ObjectStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to minio: %w", err)
	}

	s := &ObjectStore{client: client, bucket: bucket, log: log}
	if err := s.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	s.log.Info().Str("bucket", s.bucket).Msg("bucket created")
	return nil
}

// Upload stores the blob under a fresh key derived from the original name and
// returns that key.
func (s *ObjectStore) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("projects/%s%s", uuid.NewString(), path.Ext(filename))

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}

	s.log.Info().Str("key", key).Int64("size", size).Msg("object uploaded")
	return key, nil
}

// PresignedGet returns a temporary download URL for a stored object.
func (s *ObjectStore) PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

// Remove deletes a stored object; callers treat failures as best-effort.
func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
