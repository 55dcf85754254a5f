package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiopredict-server/internal/domain"
)

func TestEntries(t *testing.T) {
	entries := Entries()

	require.Len(t, entries, 4)
	assert.Equal(t, "cardio_data_2025.xlsx", entries[0].FileName)
	assert.Equal(t, time.Date(2025, time.May, 18, 0, 0, 0, 0, time.UTC), entries[0].Date)
	assert.Equal(t, domain.RiskHigh, entries[0].RiskLevel)
	assert.Equal(t, "Riesgo Alto", entries[0].Result)

	assert.Equal(t, "J48", entries[1].Algorithm)
	assert.Equal(t, 87.1, entries[1].Accuracy)
	assert.Equal(t, domain.RiskMedium, entries[1].RiskLevel)

	assert.Equal(t, "medical_records_q1.xlsx", entries[3].FileName)
	assert.Equal(t, 91.8, entries[3].Accuracy)

	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Date.After(entries[i].Date), "entries must be newest first")
	}
}

func TestFixedSummary_Statistics(t *testing.T) {
	stats := FixedSummary().Statistics()

	assert.Equal(t, 24, stats.TotalAnalyses)
	assert.Equal(t, 89.7, stats.AverageAccuracy)
	assert.Equal(t, "Random Forest", stats.MostAccurateAlgorithm)
	assert.Equal(t, 12, stats.AlgorithmDistribution[domain.RandomForest])
	assert.Equal(t, 8, stats.AlgorithmDistribution[domain.J48])
	assert.Equal(t, 4, stats.AlgorithmDistribution[domain.NaiveBayes])
	assert.Equal(t, 7, stats.RiskDistribution[domain.RiskHigh])
	assert.Equal(t, 10, stats.RiskDistribution[domain.RiskMedium])
	assert.Equal(t, 7, stats.RiskDistribution[domain.RiskLow])
	assert.Equal(t, 50.0, stats.AlgorithmShare[domain.RandomForest])
	assert.Equal(t, 33.3, stats.AlgorithmShare[domain.J48])
	assert.Equal(t, 16.7, stats.AlgorithmShare[domain.NaiveBayes])
}

func TestMemoryStore_List(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tests := []struct {
		name     string
		filter   domain.HistoryFilter
		expected []int64
	}{
		{"No filter", domain.HistoryFilter{}, []int64{1, 2, 3, 4}},
		{"Medium risk", domain.HistoryFilter{RiskLevel: domain.RiskMedium}, []int64{2, 4}},
		{"Moderate maps to medium", domain.HistoryFilter{RiskLevel: domain.RiskModerate}, []int64{2, 4}},
		{"Random Forest", domain.HistoryFilter{Algorithm: domain.RandomForest}, []int64{1, 4}},
		{"Both filters", domain.HistoryFilter{RiskLevel: domain.RiskHigh, Algorithm: domain.RandomForest}, []int64{1}},
		{"No match", domain.HistoryFilter{RiskLevel: domain.RiskLow, Algorithm: domain.J48}, []int64{}},
		{"Limit", domain.HistoryFilter{Limit: 2}, []int64{1, 2}},
		{"Offset", domain.HistoryFilter{Limit: 2, Offset: 3}, []int64{4}},
		{"Offset past end", domain.HistoryFilter{Offset: 10}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.List(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]int64, 0, len(entries))
			for _, e := range entries {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestMemoryStore_Get(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entry, err := store.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "heart_study_group.xlsx", entry.FileName)

	// Returned entries are copies
	entry.FileName = "changed"
	again, err := store.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "heart_study_group.xlsx", again.FileName)

	_, err = store.Get(ctx, 99)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.List(ctx, domain.HistoryFilter{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Statistics(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_StatisticsAreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	stats.AlgorithmDistribution[domain.J48] = 1000

	again, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, again.AlgorithmDistribution[domain.J48])
	assert.NoError(t, store.Close())
}
