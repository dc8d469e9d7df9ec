package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", errors.New("invalid key: " + key)
	}
	return filepath.Join(s.base, clean), nil
}

// Put writes to a temp file and renames it into place, so readers never see a partial blob.
func (s *FSStore) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return key, nil
}

func (s *FSStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *FSStore) SignedURL(_ context.Context, key string) (string, error) {
	u := url.URL{Scheme: "file", Path: filepath.Join(s.base, key)}
	return u.String(), nil
}
