package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/cardiopredict-server/internal/domain"
)

var defaultConfigPaths = []string{".", "./config", "/etc/cardiopredict/"}

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	paths  []string
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return newManager(defaultConfigPaths...)
}

func newManager(paths ...string) (*Manager, error) {
	m := &Manager{paths: paths}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// LoadEnvFiles loads variables from the given .env files into the process environment.
// Missing files are skipped and variables already set are kept.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("error loading %s: %w", f, err)
		}
	}
	return nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	// Set configuration file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range m.paths {
		v.AddConfigPath(p)
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix("CARDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values. Every key needs a default so that
// AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_upload_bytes", 10<<20)

	// History defaults
	v.SetDefault("history.backend", domain.HistoryBackendMemory)
	v.SetDefault("history.sqlite_path", "./data/history.db")
	v.SetDefault("history.postgres_url", "")
	v.SetDefault("history.migrate_on_start", true)
	v.SetDefault("history.max_conns", 10)
	v.SetDefault("history.min_conns", 1)
	v.SetDefault("history.max_conn_lifetime", "1h")
	v.SetDefault("history.max_conn_idle_time", "30m")

	// Session defaults
	v.SetDefault("session.backend", domain.SessionBackendMemory)
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.max_entries", 10000)
	v.SetDefault("session.redis_url", "redis://localhost:6379/0")
	v.SetDefault("session.key_prefix", "cardiopredict:workspace:")
	v.SetDefault("session.pool_size", 10)
	v.SetDefault("session.pool_timeout", "4s")
	v.SetDefault("session.max_retries", 3)
	v.SetDefault("session.circuit_breaker.max_requests", 1)
	v.SetDefault("session.circuit_breaker.interval", "30s")
	v.SetDefault("session.circuit_breaker.timeout", "60s")
	v.SetDefault("session.circuit_breaker.failure_threshold", 5)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.idle_ttl", "10m")

	// Notification delays
	v.SetDefault("simulation.manual_entry_delay", "1000ms")
	v.SetDefault("simulation.upload_delay", "1500ms")

	v.SetDefault("estimator.seed", 0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetHistoryConfig returns history catalog configuration
func (m *Manager) GetHistoryConfig() *domain.HistoryConfig {
	return &m.config.History
}

// GetSessionConfig returns workspace storage configuration
func (m *Manager) GetSessionConfig() *domain.SessionConfig {
	return &m.config.Session
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload size must be positive")
	}

	switch config.History.Backend {
	case domain.HistoryBackendMemory:
	case domain.HistoryBackendSQLite:
		if config.History.SQLitePath == "" {
			return fmt.Errorf("history SQLite path is required")
		}
	case domain.HistoryBackendPostgres:
		if config.History.PostgresURL == "" {
			return fmt.Errorf("history PostgreSQL URL is required")
		}
	default:
		return fmt.Errorf("invalid history backend: %q", config.History.Backend)
	}

	switch config.Session.Backend {
	case domain.SessionBackendMemory:
	case domain.SessionBackendRedis:
		if config.Session.RedisURL == "" {
			return fmt.Errorf("session Redis URL is required")
		}
	default:
		return fmt.Errorf("invalid session backend: %q", config.Session.Backend)
	}
	if config.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit requests per second must be positive")
	}

	if config.Simulation.ManualEntryDelay < 0 || config.Simulation.UploadDelay < 0 {
		return fmt.Errorf("simulation delays must not be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	if f := strings.ToLower(config.Logging.Format); f != "json" && f != "text" {
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
