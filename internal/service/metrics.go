package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// predictionsTotal counts risk estimates.
	// Labels: algorithm (j48, randomForest, naiveBayes, unselected), level (low, moderate, high)
	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cardiopredict",
		Subsystem: "prediction",
		Name:      "estimates_total",
		Help:      "Total risk estimates by algorithm and display level",
	}, []string{"algorithm", "level"})

	// predictionRisk tracks the distribution of final risk values.
	predictionRisk = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cardiopredict",
		Subsystem: "prediction",
		Name:      "risk",
		Help:      "Distribution of estimated cardiovascular risk",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	// intakeOutcomes counts manual entries and uploads.
	// Labels: flow (manual, upload), outcome (accepted, rejected)
	intakeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cardiopredict",
		Subsystem: "intake",
		Name:      "submissions_total",
		Help:      "Total intake submissions by flow and outcome",
	}, []string{"flow", "outcome"})
)
