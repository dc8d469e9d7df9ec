package storage

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

type MinioStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewMinioStore connects and creates the bucket when it does not exist yet.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	ok, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	exp := cfg.URLExpiry
	if exp <= 0 {
		exp = time.Hour
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, expiry: exp}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapMinioErr(err)
	}
	return obj, nil
}

func (s *MinioStore) SignedURL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func mapMinioErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}
