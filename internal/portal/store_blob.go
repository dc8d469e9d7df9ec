package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/mind-engage/eduquest/internal/storage"
)

// BlobStore keeps the snapshot as a single JSON object in a storage.BlobStore.
// The version counter lives in this process, so it only arbitrates writers
// sharing one BlobStore value.
type BlobStore struct {
	blobs storage.BlobStore
	key   string

	mu      sync.Mutex
	version int64
	loaded  bool
}

func NewBlobStore(blobs storage.BlobStore) *BlobStore {
	return &BlobStore{blobs: blobs, key: StateKey + ".json"}
}

func (s *BlobStore) Load(ctx context.Context) (SystemData, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, found, err := s.read(ctx)
	if err != nil {
		return SystemData{}, 0, err
	}
	if !s.loaded {
		s.loaded = true
		if found {
			s.version = 1
		}
	}
	return d, s.version, nil
}

func (s *BlobStore) Save(ctx context.Context, data SystemData, expected int64) (int64, error) {
	buf, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if _, found, err := s.read(ctx); err != nil {
			return 0, err
		} else if found {
			s.version = 1
		}
		s.loaded = true
	}
	if expected != AnyVersion && expected != s.version {
		return 0, ErrConflict
	}
	if _, err := s.blobs.Put(ctx, s.key, bytes.NewReader(buf), "application/json"); err != nil {
		return 0, err
	}
	s.version++
	return s.version, nil
}

func (s *BlobStore) read(ctx context.Context) (SystemData, bool, error) {
	rc, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return DefaultData(), false, nil
		}
		return SystemData{}, false, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return DefaultData(), false, nil
		}
		return SystemData{}, false, err
	}
	d, err := decodeSnapshot(raw)
	if err != nil {
		return SystemData{}, false, err
	}
	return d, true, nil
}
