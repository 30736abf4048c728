package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	InvenTree InvenTreeConfig
	Sync      SyncConfig
	History   HistoryConfig
}

// InvenTreeConfig holds the remote catalog connection settings
type InvenTreeConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// SyncConfig holds engine tuning knobs
type SyncConfig struct {
	Workers       int           // parallel items per level, 1 = sequential
	RetryAttempts int           // retries for transient network/5xx/429 errors
	RetryBackoff  time.Duration // base delay, doubled per attempt
	CorpusRoot    string        // local parts corpus root directory
}

// HistoryConfig holds the optional sync-run ledger settings
type HistoryConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	url := os.Getenv("INVENTREE_URL")
	if url == "" {
		return nil, fmt.Errorf("INVENTREE_URL is required")
	}

	token := os.Getenv("INVENTREE_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("INVENTREE_TOKEN is required")
	}

	return &Config{
		InvenTree: InvenTreeConfig{
			URL:     url,
			Token:   token,
			Timeout: time.Duration(getEnvInt("INVENTREE_TIMEOUT", 30)) * time.Second,
		},
		Sync: SyncConfig{
			Workers:       getEnvInt("SYNC_WORKERS", 1),
			RetryAttempts: getEnvInt("SYNC_RETRY_ATTEMPTS", 3),
			RetryBackoff:  time.Duration(getEnvInt("SYNC_RETRY_BACKOFF_MS", 500)) * time.Millisecond,
			CorpusRoot:    getEnv("PARTS_ROOT", "data/parts"),
		},
		History: HistoryConfig{
			Enabled:  getEnv("HISTORY_ENABLED", "false") == "true",
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "parts_epccs"),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
