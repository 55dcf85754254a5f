package service

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardiopredict-server/internal/domain"
)

// Prediction is the result panel of one risk estimate.
type Prediction struct {
	Algorithm         domain.Algorithm    `json:"algorithm"`
	AlgorithmName     string              `json:"algorithm_name"`
	Risk              float64             `json:"risk"`
	Confidence        float64             `json:"confidence"`
	RiskPercent       float64             `json:"risk_percent"`
	ConfidencePercent float64             `json:"confidence_percent"`
	Level             domain.RiskLevel    `json:"level"`
	LevelLabel        string              `json:"level_label"`
	Notice            domain.Notification `json:"notice"`
}

// PredictionService runs the estimator and dresses its output for display.
type PredictionService struct {
	estimator domain.RiskEstimator
	catalog   *AlgorithmCatalog
	logger    *logrus.Logger
}

// NewPredictionService creates a prediction service.
func NewPredictionService(estimator domain.RiskEstimator, catalog *AlgorithmCatalog, logger *logrus.Logger) *PredictionService {
	return &PredictionService{
		estimator: estimator,
		catalog:   catalog,
		logger:    logger,
	}
}

// PredictionNotice announces a finished estimate.
func PredictionNotice(algorithmName string) domain.Notification {
	if algorithmName == "" {
		algorithmName = "sin seleccionar"
	}
	return domain.Notification{
		Title:       "Predicción completada",
		Description: "Algoritmo: " + algorithmName,
		Variant:     domain.NotificationDefault,
	}
}

// Predict estimates the risk of inputs under algorithm. An unselected algorithm is allowed
// and reports the default confidence.
func (s *PredictionService) Predict(inputs domain.PatientInputs, algorithm domain.Algorithm) *Prediction {
	result := s.estimator.Estimate(inputs, algorithm)
	level := domain.RiskLevelFor(result.Risk)
	name := s.catalog.Name(algorithm)

	notice := PredictionNotice(name)
	notice.CreatedAt = time.Now().UTC()

	predictionsTotal.WithLabelValues(algorithm.String(), string(level)).Inc()
	predictionRisk.Observe(result.Risk)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"algorithm": algorithm.String(),
			"level":     level,
		}).Info("Prediction completed")
	}

	return &Prediction{
		Algorithm:         algorithm,
		AlgorithmName:     name,
		Risk:              result.Risk,
		Confidence:        result.Confidence,
		RiskPercent:       percent(result.Risk),
		ConfidencePercent: percent(result.Confidence),
		Level:             level,
		LevelLabel:        level.Label(),
		Notice:            notice,
	}
}

func percent(v float64) float64 {
	return math.Round(v*1000) / 10
}
