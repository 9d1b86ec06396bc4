package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// fileRecord is the on-disk envelope for one entry.
type fileRecord struct {
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Value     []byte    `json:"value"`
}

// FileStore keeps one JSON file per key under a base directory. Version
// checks are serialised within the process only.
type FileStore struct {
	basePath string
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewFileStore creates a FileStore and ensures the base directory exists.
func NewFileStore(basePath string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{basePath: basePath, logger: logger}, nil
}

// path returns the file for key. Person ids are escaped so they cannot walk
// out of the base directory.
func (s *FileStore) path(key Key) string {
	filename := fmt.Sprintf("%s.json", url.PathEscape(key.String()))
	return filepath.Join(s.basePath, filename)
}

func (s *FileStore) Load(_ context.Context, key Key) (Entry, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(key)
}

func (s *FileStore) load(key Key) (Entry, Status) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, StatusAbsent
		}
		s.logger.Warn("kv file read failed", zap.Stringer("key", key), zap.Error(err))
		return Entry{}, StatusUnavailable
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// The envelope itself is damaged; the version is unknown, so report
		// the entry as corrupt at version 0 and let a fresh write replace it.
		s.logger.Warn("kv file envelope unreadable", zap.Stringer("key", key), zap.Error(err))
		return Entry{}, StatusCorrupt
	}
	return Entry{Value: rec.Value, Version: rec.Version}, StatusOK
}

func (s *FileStore) Save(_ context.Context, key Key, value []byte, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, status := s.load(key)
	if status == StatusUnavailable {
		return ErrUnavailable
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}

	data, err := json.Marshal(fileRecord{
		Version:   expectedVersion + 1,
		UpdatedAt: time.Now().UTC(),
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal kv entry: %w", err)
	}

	// Write to a sibling temp file and rename so readers never see a torn file.
	tmp, err := os.CreateTemp(s.basePath, ".kv-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write kv file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close kv file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("failed to replace kv file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove kv file: %w", err)
	}
	return nil
}
