package config

import (
	"testing"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	t.Run("Defaults", func(t *testing.T) {
		for _, key := range []string{"DATABASE_PATH", "STORE_BACKEND", "RECIPE_API_RPS", "RESOLVE_CONCURRENCY", "TELEGRAM_ALLOWED_USERS", "PORT"} {
			setEnv(key, "")
		}

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabasePath != "data/meal-planner.db" {
			t.Errorf("Expected default DatabasePath, got '%s'", cfg.DatabasePath)
		}
		if cfg.StoreBackend != BackendSQLite {
			t.Errorf("Expected sqlite backend, got '%s'", cfg.StoreBackend)
		}
		if cfg.RecipeAPIRPS != 5 {
			t.Errorf("Expected RecipeAPIRPS 5, got %v", cfg.RecipeAPIRPS)
		}
		if cfg.ResolveConcurrency != 4 {
			t.Errorf("Expected ResolveConcurrency 4, got %d", cfg.ResolveConcurrency)
		}
		if cfg.Port != "8080" {
			t.Errorf("Expected Port 8080, got '%s'", cfg.Port)
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		setEnv("DATABASE_PATH", "/tmp/planner.db")
		setEnv("STORE_BACKEND", "file")
		setEnv("RECIPE_API_URL", "https://recipes.test/")
		setEnv("RESOLVE_CONCURRENCY", "8")
		setEnv("TELEGRAM_ALLOWED_USERS", "123=alice, 456=bob")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabasePath != "/tmp/planner.db" {
			t.Errorf("Expected DatabasePath override, got '%s'", cfg.DatabasePath)
		}
		if cfg.StoreBackend != BackendFile {
			t.Errorf("Expected file backend, got '%s'", cfg.StoreBackend)
		}
		if cfg.RecipeAPIURL != "https://recipes.test" {
			t.Errorf("Expected trailing slash trimmed, got '%s'", cfg.RecipeAPIURL)
		}
		if cfg.ResolveConcurrency != 8 {
			t.Errorf("Expected ResolveConcurrency 8, got %d", cfg.ResolveConcurrency)
		}
		if cfg.TelegramUsers[123] != "alice" || cfg.TelegramUsers[456] != "bob" {
			t.Errorf("Unexpected TelegramUsers: %v", cfg.TelegramUsers)
		}
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		setEnv("STORE_BACKEND", "redis")
		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for unknown backend, got nil")
		}
	})

	t.Run("MongoRequiresURI", func(t *testing.T) {
		setEnv("STORE_BACKEND", "mongo")
		setEnv("MONGO_URI", "")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing MONGO_URI, got nil")
		}
		expectedError := "MONGO_URI environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("InvalidConcurrency", func(t *testing.T) {
		setEnv("STORE_BACKEND", "")
		setEnv("RESOLVE_CONCURRENCY", "zero")
		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for invalid RESOLVE_CONCURRENCY, got nil")
		}
	})

	t.Run("InvalidTelegramUsers", func(t *testing.T) {
		setEnv("STORE_BACKEND", "")
		setEnv("RESOLVE_CONCURRENCY", "")
		setEnv("TELEGRAM_ALLOWED_USERS", "alice")
		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for malformed TELEGRAM_ALLOWED_USERS, got nil")
		}
	})
}
