package portal

import (
	"context"
	"encoding/json"
	"sync"
)

// StateKey is the fixed key the snapshot is stored under.
const StateKey = "eduquest_data"

// AnyVersion makes Save overwrite regardless of the stored version.
const AnyVersion int64 = -1

// SnapshotStore persists the whole SystemData as one record.
//
// Load returns the seed snapshot at version 0 when nothing was saved yet.
// Save replaces the snapshot atomically; if expected is not AnyVersion and
// differs from the stored version it returns ErrConflict and writes nothing.
type SnapshotStore interface {
	Load(ctx context.Context) (SystemData, int64, error)
	Save(ctx context.Context, data SystemData, expected int64) (int64, error)
}

// DefaultData is the seed snapshot used before the first save.
func DefaultData() SystemData {
	return SystemData{
		Students: []Student{{
			ID:                   "1",
			Name:                 "John Doe",
			DOB:                  "2000-01-01",
			RollNumber:           "S001",
			ProfilePhoto:         "https://picsum.photos/seed/john/200",
			AssignedSubjectCodes: []string{},
		}},
		Subjects: []Subject{},
		Attempts: []ExamAttempt{},
	}
}

type memoryStore struct {
	mu      sync.RWMutex
	raw     []byte
	version int64
}

// NewInMemoryStore keeps the snapshot as JSON in process memory, so callers
// never share slices with the stored copy.
func NewInMemoryStore() SnapshotStore {
	return &memoryStore{}
}

func (m *memoryStore) Load(_ context.Context) (SystemData, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.raw == nil {
		return DefaultData(), 0, nil
	}
	d, err := decodeSnapshot(m.raw)
	if err != nil {
		return SystemData{}, 0, err
	}
	return d, m.version, nil
}

func (m *memoryStore) Save(_ context.Context, data SystemData, expected int64) (int64, error) {
	buf, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if expected != AnyVersion && expected != m.version {
		return 0, ErrConflict
	}
	m.raw = buf
	m.version++
	return m.version, nil
}

// decodeSnapshot tolerates null collections in stored JSON.
func decodeSnapshot(raw []byte) (SystemData, error) {
	var d SystemData
	if err := json.Unmarshal(raw, &d); err != nil {
		return SystemData{}, err
	}
	if d.Students == nil {
		d.Students = []Student{}
	}
	if d.Subjects == nil {
		d.Subjects = []Subject{}
	}
	if d.Attempts == nil {
		d.Attempts = []ExamAttempt{}
	}
	return d, nil
}
