package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiopredict-server/internal/domain"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, domain.HistoryBackendMemory, cfg.HistoryBackend)
	assert.Zero(t, cfg.Seed)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CARDIO_DATA_DIR", "/tmp/test-cardio")
	t.Setenv("CARDIO_HISTORY_BACKEND", "sqlite")
	t.Setenv("CARDIO_SEED", "42")
	t.Setenv("CARDIO_LOG_LEVEL", "debug")
	t.Setenv("CARDIO_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-cardio", cfg.DataDir)
	assert.Equal(t, domain.HistoryBackendSQLite, cfg.HistoryBackend)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("CARDIO_HISTORY_BACKEND", "postgres")
	t.Setenv("CARDIO_SEED", "-1")

	cfg := LoadLiteConfig()

	assert.Equal(t, domain.HistoryBackendMemory, cfg.HistoryBackend)
	assert.Zero(t, cfg.Seed)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.cardiopredict", LogLevel: "warn", LogFormat: "text"}

	assert.Equal(t, "/home/user/.cardiopredict/history.db", cfg.HistoryDBPath())
	assert.Equal(t, domain.LoggingConfig{Level: "warn", Format: "text", Output: "stderr"}, cfg.Logging())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")
	cfg := &LiteConfig{DataDir: dataDir}

	require.NoError(t, cfg.EnsureDataDir())

	info, err := os.Stat(dataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
