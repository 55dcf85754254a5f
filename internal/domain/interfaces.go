package domain

import (
	"context"
)

// RandomSource supplies uniform draws in [0,1). *math/rand/v2.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// RiskEstimator turns patient vitals into a simulated cardiovascular risk.
type RiskEstimator interface {
	Estimate(inputs PatientInputs, algorithm Algorithm) PredictionResult
}

// HistoryReader serves the fixed analysis history and its statistics.
type HistoryReader interface {
	List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
	Get(ctx context.Context, id int64) (*HistoryEntry, error)
	Statistics(ctx context.Context) (*Statistics, error)
}

// HistoryFilter narrows a history listing. Zero values disable a filter.
type HistoryFilter struct {
	RiskLevel RiskLevel `json:"risk_level,omitempty"`
	Algorithm Algorithm `json:"algorithm,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetHistoryConfig() *HistoryConfig
	GetSessionConfig() *SessionConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
