// Package history serves the fixed analysis history and the statistics summary shown on the
// history page. The catalog is read-only; every backend serves the same records.
package history

import (
	"context"
	"time"

	"github.com/cardiopredict-server/internal/domain"
)

// Store serves the history catalog from one backend.
type Store interface {
	domain.HistoryReader

	// Close releases the backend's resources.
	Close() error
}

// maxListLimit caps a single listing. A zero limit means this many.
const maxListLimit = 1000

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// Entries returns the fixed history rows, newest first.
func Entries() []domain.HistoryEntry {
	return []domain.HistoryEntry{
		{
			ID:          1,
			Date:        day(2025, time.May, 18),
			FileName:    "cardio_data_2025.xlsx",
			AlgorithmID: domain.RandomForest,
			Algorithm:   "Random Forest",
			Accuracy:    92.3,
			Result:      "Riesgo Alto",
			RiskLevel:   domain.RiskHigh,
		},
		{
			ID:          2,
			Date:        day(2025, time.May, 15),
			FileName:    "patient_screening_may.csv",
			AlgorithmID: domain.J48,
			Algorithm:   "J48",
			Accuracy:    87.1,
			Result:      "Riesgo Moderado",
			RiskLevel:   domain.RiskMedium,
		},
		{
			ID:          3,
			Date:        day(2025, time.May, 10),
			FileName:    "heart_study_group.xlsx",
			AlgorithmID: domain.NaiveBayes,
			Algorithm:   "Naive Bayes",
			Accuracy:    83.5,
			Result:      "Riesgo Bajo",
			RiskLevel:   domain.RiskLow,
		},
		{
			ID:          4,
			Date:        day(2025, time.May, 5),
			FileName:    "medical_records_q1.xlsx",
			AlgorithmID: domain.RandomForest,
			Algorithm:   "Random Forest",
			Accuracy:    91.8,
			Result:      "Riesgo Moderado",
			RiskLevel:   domain.RiskMedium,
		},
	}
}

// Summary is the headline of the statistics tab. The figures cover every analysis ever run,
// not only the rows returned by Entries.
type Summary struct {
	TotalAnalyses         int
	AverageAccuracy       float64
	MostAccurateAlgorithm string
	AlgorithmCounts       map[domain.Algorithm]int
	RiskCounts            map[domain.RiskLevel]int
}

// FixedSummary returns the statistics record served by every backend.
func FixedSummary() Summary {
	return Summary{
		TotalAnalyses:         24,
		AverageAccuracy:       89.7,
		MostAccurateAlgorithm: "Random Forest",
		AlgorithmCounts: map[domain.Algorithm]int{
			domain.RandomForest: 12,
			domain.J48:          8,
			domain.NaiveBayes:   4,
		},
		RiskCounts: map[domain.RiskLevel]int{
			domain.RiskHigh:   7,
			domain.RiskMedium: 10,
			domain.RiskLow:    7,
		},
	}
}

// Statistics expands the summary with per-algorithm shares.
func (s Summary) Statistics() *domain.Statistics {
	stats := &domain.Statistics{
		TotalAnalyses:         s.TotalAnalyses,
		AverageAccuracy:       s.AverageAccuracy,
		MostAccurateAlgorithm: s.MostAccurateAlgorithm,
		AlgorithmDistribution: make(map[domain.Algorithm]int, len(s.AlgorithmCounts)),
		RiskDistribution:      make(map[domain.RiskLevel]int, len(s.RiskCounts)),
		AlgorithmShare:        make(map[domain.Algorithm]float64, len(s.AlgorithmCounts)),
	}
	for alg, n := range s.AlgorithmCounts {
		stats.AlgorithmDistribution[alg] = n
		stats.AlgorithmShare[alg] = domain.Share(n, s.TotalAnalyses)
	}
	for level, n := range s.RiskCounts {
		stats.RiskDistribution[level] = n
	}
	return stats
}

// normalizeFilter clamps paging and maps the display vocabulary onto the history one.
func normalizeFilter(filter domain.HistoryFilter) domain.HistoryFilter {
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.RiskLevel == domain.RiskModerate {
		filter.RiskLevel = domain.RiskMedium
	}
	return filter
}

// MemoryStore serves the catalog from process memory.
type MemoryStore struct {
	entries []domain.HistoryEntry
	summary Summary
}

// NewMemoryStore creates a memory-backed store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: Entries(), summary: FixedSummary()}
}

// List returns the entries matching filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter = normalizeFilter(filter)

	matched := make([]domain.HistoryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if filter.RiskLevel != "" && e.RiskLevel != filter.RiskLevel {
			continue
		}
		if filter.Algorithm.IsValid() && e.AlgorithmID != filter.Algorithm {
			continue
		}
		matched = append(matched, e)
	}

	if filter.Offset >= len(matched) {
		return []domain.HistoryEntry{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

// Get returns one entry or domain.ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, id int64) (*domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, e := range m.entries {
		if e.ID == id {
			entry := e
			return &entry, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Statistics returns the statistics summary.
func (m *MemoryStore) Statistics(ctx context.Context) (*domain.Statistics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.summary.Statistics(), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
