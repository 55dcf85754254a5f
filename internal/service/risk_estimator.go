package service

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardiopredict-server/internal/domain"
)

// DefaultConfidence is reported when no algorithm has been selected.
const DefaultConfidence = 0.85

// jitterSpan is the width of the uniform band added to the base risk.
const jitterSpan = 0.1

var confidenceByAlgorithm = [domain.NumAlgorithms]float64{
	domain.J48 - 1:          0.87,
	domain.RandomForest - 1: 0.92,
	domain.NaiveBayes - 1:   0.83,
}

// ThresholdRiskEstimator simulates a cardiovascular risk prediction with three threshold
// rules and a small uniform jitter. It is not a model; the selected algorithm only changes
// the reported confidence.
type ThresholdRiskEstimator struct {
	mu     sync.Mutex
	rng    domain.RandomSource
	logger *logrus.Logger
}

// NewThresholdRiskEstimator creates an estimator drawing jitter from rng.
// A nil rng is replaced by a time-seeded PCG source.
func NewThresholdRiskEstimator(logger *logrus.Logger, rng domain.RandomSource) *ThresholdRiskEstimator {
	if rng == nil {
		rng = NewSeededSource(0)
	}
	return &ThresholdRiskEstimator{
		rng:    rng,
		logger: logger,
	}
}

// NewSeededSource returns a PCG random source. A zero seed uses the current time.
func NewSeededSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Estimate returns the jittered risk for inputs and the confidence of algorithm.
// Identical calls may differ by up to 0.1 in Risk.
func (e *ThresholdRiskEstimator) Estimate(inputs domain.PatientInputs, algorithm domain.Algorithm) domain.PredictionResult {
	bucket := Bucket(inputs)

	e.mu.Lock()
	draw := e.rng.Float64()
	e.mu.Unlock()

	risk := clamp(bucket.BaseRisk()+(draw*jitterSpan-jitterSpan/2), 0, 1)
	confidence := Confidence(algorithm)

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"algorithm":  algorithm.String(),
			"bucket":     bucket,
			"risk":       risk,
			"confidence": confidence,
		}).Debug("Estimated cardiovascular risk")
	}

	return domain.PredictionResult{Risk: risk, Confidence: confidence}
}

// Bucket applies the threshold rules in order; the first match wins.
func Bucket(inputs domain.PatientInputs) domain.RiskBucket {
	switch {
	case inputs.Age > 60 && inputs.Cholesterol > 200 && inputs.SystolicBP > 130 && inputs.Smoking:
		return domain.BucketHigh
	case (inputs.Age > 50 && inputs.Cholesterol > 190) || (inputs.SystolicBP > 120 && inputs.Smoking):
		return domain.BucketModerate
	default:
		return domain.BucketLow
	}
}

// Confidence returns the fixed confidence of an algorithm, independent of any input.
func Confidence(algorithm domain.Algorithm) float64 {
	if !algorithm.IsValid() {
		return DefaultConfidence
	}
	return confidenceByAlgorithm[algorithm.Index()]
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
