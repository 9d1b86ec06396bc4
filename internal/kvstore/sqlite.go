package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"household-meal-planner/internal/kvstore/kvdb"
)

// SQLiteStore keeps entries in the kv_entries table.
type SQLiteStore struct {
	queries *kvdb.Queries
	db      *sql.DB
	logger  *zap.Logger
}

// NewSQLiteStore creates a store on an already migrated database.
func NewSQLiteStore(d *sql.DB, logger *zap.Logger) *SQLiteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{
		queries: kvdb.New(d),
		db:      d,
		logger:  logger,
	}
}

func (s *SQLiteStore) Load(ctx context.Context, key Key) (Entry, Status) {
	row, err := s.queries.GetEntry(ctx, kvdb.GetEntryParams{
		Namespace: key.Namespace,
		PersonID:  key.PersonID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, StatusAbsent
		}
		s.logger.Warn("kv entry read failed", zap.Stringer("key", key), zap.Error(err))
		return Entry{}, StatusUnavailable
	}
	return Entry{Value: row.Value, Version: row.Version}, StatusOK
}

func (s *SQLiteStore) Save(ctx context.Context, key Key, value []byte, expectedVersion int64) error {
	now := time.Now().UTC()

	var (
		affected int64
		err      error
	)
	if expectedVersion == 0 {
		affected, err = s.queries.InsertEntry(ctx, kvdb.InsertEntryParams{
			Namespace: key.Namespace,
			PersonID:  key.PersonID,
			Value:     value,
			UpdatedAt: now,
		})
	} else {
		affected, err = s.queries.UpdateEntry(ctx, kvdb.UpdateEntryParams{
			Value:     value,
			UpdatedAt: now,
			Namespace: key.Namespace,
			PersonID:  key.PersonID,
			Version:   expectedVersion,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to write kv entry %s: %w", key, err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key Key) error {
	err := s.queries.DeleteEntry(ctx, kvdb.DeleteEntryParams{
		Namespace: key.Namespace,
		PersonID:  key.PersonID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete kv entry %s: %w", key, err)
	}
	return nil
}
