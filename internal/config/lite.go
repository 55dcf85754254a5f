// Package config loads the application configuration: a viper-backed Manager for the HTTP
// server and an environment-only LiteConfig for the MCP server.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cardiopredict-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external services and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir        string // Base directory for data files
	HistoryBackend string // memory or sqlite

	// Estimator
	Seed uint64 // Fixed jitter seed; zero draws one at startup

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".cardiopredict")

	return &LiteConfig{
		DataDir:        dataDir,
		HistoryBackend: domain.HistoryBackendMemory,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("CARDIO_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CARDIO_HISTORY_BACKEND"); v == domain.HistoryBackendMemory || v == domain.HistoryBackendSQLite {
		cfg.HistoryBackend = v
	}
	if v := os.Getenv("CARDIO_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}

	if v := os.Getenv("CARDIO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CARDIO_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// HistoryDBPath returns the path to the SQLite history catalog.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// Logging returns the logging configuration. MCP speaks on stdout, so logs go to stderr.
func (c *LiteConfig) Logging() domain.LoggingConfig {
	return domain.LoggingConfig{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: "stderr",
	}
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
