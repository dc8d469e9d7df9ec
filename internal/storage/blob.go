package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("blob not found")

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)                           // ErrNotFound when missing
	SignedURL(ctx context.Context, key string) (string, error)                            // fs returns "file://..." for dev
}
