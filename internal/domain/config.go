package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	History     HistoryConfig    `mapstructure:"history"`
	Session     SessionConfig    `mapstructure:"session"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Simulation  SimulationConfig `mapstructure:"simulation"`
	Estimator   EstimatorConfig  `mapstructure:"estimator"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// History backends
const (
	HistoryBackendMemory   = "memory"
	HistoryBackendSQLite   = "sqlite"
	HistoryBackendPostgres = "postgres"
)

// HistoryConfig selects where the fixed history catalog is served from
type HistoryConfig struct {
	Backend         string        `mapstructure:"backend"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	PostgresURL     string        `mapstructure:"postgres_url"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// Session backends
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// SessionConfig represents workspace storage configuration
type SessionConfig struct {
	Backend        string               `mapstructure:"backend"`
	TTL            time.Duration        `mapstructure:"ttl"`
	MaxEntries     int                  `mapstructure:"max_entries"`
	RedisURL       string               `mapstructure:"redis_url"`
	KeyPrefix      string               `mapstructure:"key_prefix"`
	PoolSize       int                  `mapstructure:"pool_size"`
	PoolTimeout    time.Duration        `mapstructure:"pool_timeout"`
	MaxRetries     int                  `mapstructure:"max_retries"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// RateLimitConfig represents per-client request rate limiting
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

// SimulationConfig holds the cosmetic processing delays before follow-up notifications
type SimulationConfig struct {
	ManualEntryDelay time.Duration `mapstructure:"manual_entry_delay"`
	UploadDelay      time.Duration `mapstructure:"upload_delay"`
}

// EstimatorConfig configures the risk estimator's random source.
// A zero seed draws a fresh seed at startup.
type EstimatorConfig struct {
	Seed uint64 `mapstructure:"seed"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
