package kvstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"household-meal-planner/internal/database"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := NewKey(NamespaceMealPlan, "alice")

	t.Run("LoadAbsent", func(t *testing.T) {
		entry, status := s.Load(ctx, key)
		if status != StatusAbsent {
			t.Fatalf("Expected status absent, got %s", status)
		}
		if entry.Version != 0 {
			t.Errorf("Expected version 0 for absent key, got %d", entry.Version)
		}
	})

	t.Run("InsertThenLoad", func(t *testing.T) {
		if err := s.Save(ctx, key, []byte(`{"a":1}`), 0); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		entry, status := s.Load(ctx, key)
		if status != StatusOK {
			t.Fatalf("Expected status ok, got %s", status)
		}
		if string(entry.Value) != `{"a":1}` {
			t.Errorf("Expected stored value, got %q", entry.Value)
		}
		if entry.Version != 1 {
			t.Errorf("Expected version 1, got %d", entry.Version)
		}
	})

	t.Run("StaleInsertConflicts", func(t *testing.T) {
		err := s.Save(ctx, key, []byte(`{"a":2}`), 0)
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("Expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("UpdateWithCurrentVersion", func(t *testing.T) {
		if err := s.Save(ctx, key, []byte(`{"a":3}`), 1); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		entry, _ := s.Load(ctx, key)
		if entry.Version != 2 || string(entry.Value) != `{"a":3}` {
			t.Errorf("Expected version 2 with new value, got %d %q", entry.Version, entry.Value)
		}
	})

	t.Run("StaleUpdateConflicts", func(t *testing.T) {
		err := s.Save(ctx, key, []byte(`{"a":4}`), 1)
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("Expected ErrVersionConflict, got %v", err)
		}
		entry, _ := s.Load(ctx, key)
		if string(entry.Value) != `{"a":3}` {
			t.Errorf("Expected losing write to be discarded, got %q", entry.Value)
		}
	})

	t.Run("PartitionedPerPerson", func(t *testing.T) {
		_, status := s.Load(ctx, NewKey(NamespaceMealPlan, "bob"))
		if status != StatusAbsent {
			t.Errorf("Expected bob's entry to be absent, got %s", status)
		}
		_, status = s.Load(ctx, NewKey(NamespaceShoppingList, "alice"))
		if status != StatusAbsent {
			t.Errorf("Expected other namespace to be absent, got %s", status)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete(ctx, key); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, status := s.Load(ctx, key); status != StatusAbsent {
			t.Errorf("Expected absent after delete, got %s", status)
		}
		if err := s.Delete(ctx, key); err != nil {
			t.Errorf("Expected deleting an absent key to succeed, got %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create FileStore: %v", err)
	}
	runStoreContract(t, s)

	t.Run("EscapesPersonID", func(t *testing.T) {
		key := NewKey(NamespaceShoppingList, "../escape")
		if err := s.Save(context.Background(), key, []byte(`[]`), 0); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		matches, _ := filepath.Glob(filepath.Join(dir, "*.json"))
		if len(matches) != 1 {
			t.Fatalf("Expected exactly one file inside the base dir, got %v", matches)
		}
	})

	t.Run("DamagedEnvelopeIsCorrupt", func(t *testing.T) {
		key := NewKey(NamespaceMealPlan, "carol")
		if err := os.WriteFile(s.path(key), []byte("not json"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, status := s.Load(context.Background(), key); status != StatusCorrupt {
			t.Fatalf("Expected corrupt status, got %s", status)
		}
		if err := s.Save(context.Background(), key, []byte(`[]`), 0); err != nil {
			t.Errorf("Expected a fresh write to replace a damaged file, got %v", err)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "kv.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	runStoreContract(t, NewSQLiteStore(db.SQL, nil))

	t.Run("ClosedDatabaseIsUnavailable", func(t *testing.T) {
		db2, err := database.NewDB(filepath.Join(t.TempDir(), "closed.db"), nil)
		if err != nil {
			t.Fatal(err)
		}
		s := NewSQLiteStore(db2.SQL, nil)
		db2.Close()

		if _, status := s.Load(context.Background(), NewKey(NamespaceMealPlan, "alice")); status != StatusUnavailable {
			t.Errorf("Expected unavailable status, got %s", status)
		}
		if err := s.Save(context.Background(), NewKey(NamespaceMealPlan, "alice"), []byte(`[]`), 0); err == nil {
			t.Error("Expected write on closed database to fail")
		}
	})
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	s, err := NewMongoStore(MongoConfig{
		URI:      uri,
		Database: "meal_planner_test_" + time.Now().Format("20060102150405"),
		Timeout:  5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer func() {
		_ = s.collection.Database().Drop(context.Background())
		_ = s.Close(context.Background())
	}()

	runStoreContract(t, s)
}

func TestUnavailableStore(t *testing.T) {
	var s UnavailableStore
	key := NewKey(NamespaceMealPlan, "alice")

	if _, status := s.Load(context.Background(), key); status != StatusUnavailable {
		t.Errorf("Expected unavailable, got %s", status)
	}
	if err := s.Save(context.Background(), key, nil, 0); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := NewKey(NamespaceShoppingList, "alice")

	t.Run("Corrupt", func(t *testing.T) {
		if err := s.Save(ctx, key, []byte("{broken"), 0); err != nil {
			t.Fatal(err)
		}
		var dst map[string]int
		version, status := LoadJSON(ctx, s, key, &dst)
		if status != StatusCorrupt {
			t.Fatalf("Expected corrupt status, got %s", status)
		}
		if version != 1 {
			t.Errorf("Expected version of the corrupt entry to be reported, got %d", version)
		}
		if dst != nil {
			t.Errorf("Expected destination to stay untouched, got %v", dst)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		if err := SaveJSON(ctx, s, key, map[string]int{"eggs": 3}, 1); err != nil {
			t.Fatalf("SaveJSON failed: %v", err)
		}
		var dst map[string]int
		version, status := LoadJSON(ctx, s, key, &dst)
		if status != StatusOK || version != 2 || dst["eggs"] != 3 {
			t.Errorf("Unexpected result: status=%s version=%d value=%v", status, version, dst)
		}
	})
}
