package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiopredict-server/internal/domain"
)

func TestManager_Defaults(t *testing.T) {
	m, err := newManager(t.TempDir())
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, domain.HistoryBackendMemory, m.GetHistoryConfig().Backend)
	assert.Equal(t, int32(10), m.GetHistoryConfig().MaxConns)
	assert.Equal(t, domain.SessionBackendMemory, m.GetSessionConfig().Backend)
	assert.Equal(t, 30*time.Minute, m.GetSessionConfig().TTL)
	assert.Equal(t, uint32(5), cfg.Session.CircuitBreaker.FailureThreshold)
	assert.Equal(t, 1000*time.Millisecond, cfg.Simulation.ManualEntryDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Simulation.UploadDelay)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.NoError(t, m.Validate())
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
}

func TestManager_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
environment: production
server:
  port: 9090
history:
  backend: sqlite
  sqlite_path: /var/lib/cardio/history.db
simulation:
  upload_delay: 0s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	m, err := newManager(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, m.GetServerConfig().Port)
	assert.Equal(t, domain.HistoryBackendSQLite, m.GetHistoryConfig().Backend)
	assert.Equal(t, "/var/lib/cardio/history.db", m.GetHistoryConfig().SQLitePath)
	assert.Zero(t, m.GetConfig().Simulation.UploadDelay)
	assert.True(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestManager_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CARDIO_SERVER_PORT", "7070")
	t.Setenv("CARDIO_SESSION_BACKEND", "redis")
	t.Setenv("CARDIO_SESSION_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("CARDIO_ESTIMATOR_SEED", "99")

	m, err := newManager(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 7070, m.GetServerConfig().Port)
	assert.Equal(t, domain.SessionBackendRedis, m.GetSessionConfig().Backend)
	assert.Equal(t, "redis://cache:6379/1", m.GetSessionConfig().RedisURL)
	assert.Equal(t, uint64(99), m.GetConfig().Estimator.Seed)
	assert.NoError(t, m.Validate())
}

func TestManager_Reload(t *testing.T) {
	m, err := newManager(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8080, m.GetServerConfig().Port)

	t.Setenv("CARDIO_SERVER_PORT", "8181")
	require.NoError(t, m.Reload())
	assert.Equal(t, 8181, m.GetServerConfig().Port)
}

func TestManager_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644))

	_, err := newManager(dir)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *domain.Config)
		wantErr string
	}{
		{"bad port", func(c *domain.Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"upload size", func(c *domain.Config) { c.Server.MaxUploadBytes = 0 }, "max upload size"},
		{"history backend", func(c *domain.Config) { c.History.Backend = "mongo" }, "invalid history backend"},
		{"sqlite path", func(c *domain.Config) { c.History.Backend = "sqlite"; c.History.SQLitePath = "" }, "SQLite path"},
		{"postgres url", func(c *domain.Config) { c.History.Backend = "postgres" }, "PostgreSQL URL"},
		{"session backend", func(c *domain.Config) { c.Session.Backend = "memcached" }, "invalid session backend"},
		{"redis url", func(c *domain.Config) { c.Session.Backend = "redis"; c.Session.RedisURL = "" }, "Redis URL"},
		{"session ttl", func(c *domain.Config) { c.Session.TTL = 0 }, "session TTL"},
		{"rate limit", func(c *domain.Config) { c.RateLimit.RequestsPerSecond = 0 }, "requests per second"},
		{"negative delay", func(c *domain.Config) { c.Simulation.UploadDelay = -time.Second }, "delays"},
		{"log level", func(c *domain.Config) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"log format", func(c *domain.Config) { c.Logging.Format = "xml" }, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := newManager(t.TempDir())
			require.NoError(t, err)

			tt.mutate(m.GetConfig())
			assert.ErrorContains(t, m.Validate(), tt.wantErr)
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CARDIO_TEST_DOTENV=loaded\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("CARDIO_TEST_DOTENV") })

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "loaded", os.Getenv("CARDIO_TEST_DOTENV"))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(domain.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stderr, logger.Out)

	logger, err = NewLogger(domain.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	_, err = NewLogger(domain.LoggingConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(domain.LoggingConfig{Level: "info", Output: "/dev/null"})
	assert.Error(t, err)
}
