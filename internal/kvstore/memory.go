package kvstore

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[Key]Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]Entry)}
}

func (m *MemoryStore) Load(_ context.Context, key Key) (Entry, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Entry{}, StatusAbsent
	}
	value := make([]byte, len(e.Value))
	copy(value, e.Value)
	return Entry{Value: value, Version: e.Version}, StatusOK
}

func (m *MemoryStore) Save(_ context.Context, key Key, value []byte, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries[key].Version != expectedVersion {
		return ErrVersionConflict
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = Entry{Value: stored, Version: expectedVersion + 1}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// UnavailableStore models an execution context with no persistence at all:
// every read reports StatusUnavailable and every write fails.
type UnavailableStore struct{}

func (UnavailableStore) Load(context.Context, Key) (Entry, Status) {
	return Entry{}, StatusUnavailable
}

func (UnavailableStore) Save(context.Context, Key, []byte, int64) error {
	return ErrUnavailable
}

func (UnavailableStore) Delete(context.Context, Key) error {
	return ErrUnavailable
}
