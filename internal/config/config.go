package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	StoreBackend string
	StoreDir     string
	MongoURI     string
	MongoDB      string

	// Hosted recipe database. Optional: without it only household recipes
	// are available.
	RecipeAPIURL    string
	RecipeAPIKey    string
	RecipeAPISecret string
	RecipeAPIRPS    float64

	ResolveConcurrency int
	CategoryRulesPath  string

	// Telegram Config
	TelegramBotToken   string
	TelegramWebhookURL string
	// TelegramUsers maps an allowed Telegram user id to a household person id.
	TelegramUsers map[int64]string

	LogLevel string
	Port     string
}

// NewFromEnv creates a new Config object from environment variables. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:       getEnv("DATABASE_PATH", "data/meal-planner.db"),
		StoreBackend:       getEnv("STORE_BACKEND", BackendSQLite),
		StoreDir:           getEnv("STORE_DIR", "data/store"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DATABASE", "meal_planner"),
		RecipeAPIURL:       strings.TrimRight(os.Getenv("RECIPE_API_URL"), "/"),
		RecipeAPIKey:       os.Getenv("RECIPE_API_KEY"),
		RecipeAPISecret:    os.Getenv("RECIPE_API_SECRET"),
		CategoryRulesPath:  os.Getenv("CATEGORY_RULES_PATH"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", "8080"),
	}

	switch cfg.StoreBackend {
	case BackendSQLite, BackendFile, BackendMemory:
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	rps, err := strconv.ParseFloat(getEnv("RECIPE_API_RPS", "5"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("invalid RECIPE_API_RPS %q", os.Getenv("RECIPE_API_RPS"))
	}
	cfg.RecipeAPIRPS = rps

	concurrency, err := strconv.Atoi(getEnv("RESOLVE_CONCURRENCY", "4"))
	if err != nil || concurrency < 1 {
		return nil, fmt.Errorf("invalid RESOLVE_CONCURRENCY %q", os.Getenv("RESOLVE_CONCURRENCY"))
	}
	cfg.ResolveConcurrency = concurrency

	users, err := parseTelegramUsers(os.Getenv("TELEGRAM_ALLOWED_USERS"))
	if err != nil {
		return nil, err
	}
	cfg.TelegramUsers = users

	return cfg, nil
}

// parseTelegramUsers reads "123=alice,456=bob".
func parseTelegramUsers(raw string) (map[int64]string, error) {
	users := make(map[int64]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idStr, person, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(person) == "" {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USERS entry %q: expected telegramID=personID", pair)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram user id %q: %w", idStr, err)
		}
		users[id] = strings.TrimSpace(person)
	}
	return users, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
