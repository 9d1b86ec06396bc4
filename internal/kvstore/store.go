// Package kvstore is the persistence boundary for per-person blobs.
//
// Reads never fail: they report a Status instead. Writes carry the version
// that was read so a backend can refuse a write that would silently
// overwrite a concurrent update.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
)

// Namespaces used by the meal planner.
const (
	NamespaceMealPlan     = "meal-plan"
	NamespaceShoppingList = "shopping-list"
)

var (
	// ErrVersionConflict is returned by Save when the stored version no longer
	// matches the version the caller read.
	ErrVersionConflict = errors.New("kvstore: version conflict")
	// ErrUnavailable is returned by writes when no backend is reachable.
	ErrUnavailable = errors.New("kvstore: storage unavailable")
)

// Key addresses one blob: a namespace plus the owning person.
type Key struct {
	Namespace string
	PersonID  string
}

// NewKey builds a Key.
func NewKey(namespace, personID string) Key {
	return Key{Namespace: namespace, PersonID: personID}
}

func (k Key) String() string {
	return k.Namespace + "-" + k.PersonID
}

// Status is the outcome of a read.
type Status int

const (
	// StatusOK means the entry was found and readable.
	StatusOK Status = iota
	// StatusAbsent means nothing is stored under the key.
	StatusAbsent
	// StatusUnavailable means the backend could not be reached.
	StatusUnavailable
	// StatusCorrupt means a stored blob could not be decoded.
	StatusCorrupt
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAbsent:
		return "absent"
	case StatusUnavailable:
		return "unavailable"
	case StatusCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Entry is a stored blob and its version. Version 0 means absent.
type Entry struct {
	Value   []byte
	Version int64
}

// Store is implemented by every backend.
type Store interface {
	// Load reads the entry under key.
	Load(ctx context.Context, key Key) (Entry, Status)
	// Save writes value as version expectedVersion+1, provided the stored
	// version still equals expectedVersion (0 when the key is absent).
	Save(ctx context.Context, key Key, value []byte, expectedVersion int64) error
	// Delete removes the entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, key Key) error
}

// LoadJSON loads key and decodes it into dst. A blob that fails to decode
// reports StatusCorrupt and leaves dst untouched. The returned version is the
// one to pass back to Save, including for corrupt entries, so that the caller
// can overwrite them.
func LoadJSON(ctx context.Context, s Store, key Key, dst any) (int64, Status) {
	entry, status := s.Load(ctx, key)
	if status != StatusOK {
		return entry.Version, status
	}
	if err := json.Unmarshal(entry.Value, dst); err != nil {
		return entry.Version, StatusCorrupt
	}
	return entry.Version, StatusOK
}

// SaveJSON encodes v and saves it under key.
func SaveJSON(ctx context.Context, s Store, key Key, v any, expectedVersion int64) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Save(ctx, key, data, expectedVersion)
}
