package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiopredict-server/internal/config"
	"github.com/cardiopredict-server/internal/domain"
	"github.com/cardiopredict-server/internal/history"
	"github.com/cardiopredict-server/internal/service"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// connect starts a server session and returns a connected client session.
func connect(t *testing.T, opts ...LiteServerOption) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	cfg := config.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()

	opts = append([]LiteServerOption{WithLogger(quietLogger()), WithRandomSource(fixedSource(0.5))}, opts...)
	server, err := NewLiteServer(ctx, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

// structured decodes the structured payload of res into T.
func structured[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, text(res))
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)

	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func text(res *mcp.CallToolResult) string {
	if len(res.Content) == 0 {
		return ""
	}
	if tc, ok := res.Content[0].(*mcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

func TestListTools(t *testing.T) {
	session := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolPredictRisk, ToolListAlgorithms, ToolCompareAlgorithms, ToolValidatePatientData,
		ToolCheckUpload, ToolGenerateReport, ToolListHistory, ToolGetStatistics,
	}, names)
}

func TestPredictRisk(t *testing.T) {
	session := connect(t)

	tests := []struct {
		name           string
		args           map[string]any
		wantRisk       float64
		wantConfidence float64
		wantLevel      domain.RiskLevel
	}{
		{
			name:           "defaults with random forest",
			args:           map[string]any{"algorithm": "randomForest"},
			wantRisk:       0.85,
			wantConfidence: 0.92,
			wantLevel:      domain.RiskHigh,
		},
		{
			name: "moderate inputs with j48",
			args: map[string]any{
				"algorithm": "j48",
				"inputs": map[string]any{
					"age": 55, "sex": "F", "systolic_bp": 110, "diastolic_bp": 70, "cholesterol": 195,
					"glucose": 90, "smoking": false, "bmi": 24.0, "physical_activity": 1,
				},
			},
			wantRisk:       0.60,
			wantConfidence: 0.87,
			wantLevel:      domain.RiskModerate,
		},
		{
			name: "omitted sex",
			args: map[string]any{
				"algorithm": "j48",
				"inputs":    map[string]any{"age": 65, "cholesterol": 220, "systolic_bp": 140, "smoking": true},
			},
			wantRisk:       0.85,
			wantConfidence: 0.87,
			wantLevel:      domain.RiskHigh,
		},
		{
			name:           "unselected algorithm",
			args:           map[string]any{},
			wantRisk:       0.85,
			wantConfidence: 0.85,
			wantLevel:      domain.RiskHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := structured[service.Prediction](t, call(t, session, ToolPredictRisk, tt.args))
			assert.InDelta(t, tt.wantRisk, p.Risk, 1e-9)
			assert.InDelta(t, tt.wantConfidence, p.Confidence, 1e-9)
			assert.Equal(t, tt.wantLevel, p.Level)
		})
	}
}

func TestPredictRisk_Errors(t *testing.T) {
	session := connect(t)

	res := call(t, session, ToolPredictRisk, map[string]any{"algorithm": "svm"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "Invalid algorithm")

	res = call(t, session, ToolPredictRisk, map[string]any{
		"inputs": map[string]any{
			"age": -3, "sex": "M", "systolic_bp": 110, "diastolic_bp": 70, "cholesterol": 195,
			"glucose": 90, "smoking": false, "bmi": 24.0, "physical_activity": 0,
		},
	})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "age")
}

func TestListAndCompareAlgorithms(t *testing.T) {
	session := connect(t)

	list := structured[struct {
		Algorithms []domain.AlgorithmProfile `json:"algorithms"`
	}](t, call(t, session, ToolListAlgorithms, nil))
	require.Len(t, list.Algorithms, 3)
	assert.Equal(t, "J48 (C4.5)", list.Algorithms[0].Name)

	comparison := structured[service.Comparison](t, call(t, session, ToolCompareAlgorithms, nil))
	assert.Equal(t, domain.RandomForest, comparison.Recommended)
	assert.Contains(t, comparison.Recommendation, "92.3%")
}

func TestValidatePatientData(t *testing.T) {
	session := connect(t)

	t.Run("valid", func(t *testing.T) {
		out := structured[ValidatePatientDataResult](t, call(t, session, ToolValidatePatientData, map[string]any{
			"age": "58", "systolic": "135", "diastolic": "85", "cholesterol": "210", "glucose": "110", "smoker": true,
		}))
		assert.True(t, out.Valid)
		require.NotNil(t, out.Inputs)
		assert.Equal(t, domain.Male, out.Inputs.Sex)
		assert.True(t, out.Inputs.Smoking)
	})

	t.Run("missing fields", func(t *testing.T) {
		out := structured[ValidatePatientDataResult](t, call(t, session, ToolValidatePatientData, map[string]any{
			"age": " ", "systolic": "135", "diastolic": "", "cholesterol": "210", "glucose": "110",
		}))
		assert.False(t, out.Valid)
		assert.Equal(t, []string{"age", "diastolic"}, out.MissingFields)
		require.NotNil(t, out.Notice)
		assert.Equal(t, "Faltan datos requeridos", out.Notice.Title)
	})

	t.Run("not a number", func(t *testing.T) {
		out := structured[ValidatePatientDataResult](t, call(t, session, ToolValidatePatientData, map[string]any{
			"age": "58", "systolic": "alta", "diastolic": "85", "cholesterol": "210", "glucose": "110",
		}))
		assert.False(t, out.Valid)
		assert.Contains(t, out.Error, "systolic")
		assert.Nil(t, out.Notice)
	})
}

func TestCheckUpload(t *testing.T) {
	session := connect(t)

	accepted := structured[CheckUploadResult](t, call(t, session, ToolCheckUpload, map[string]any{
		"file_name": "datos.xlsx", "content_type": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "size_bytes": 1536,
	}))
	assert.True(t, accepted.Accepted)
	require.NotNil(t, accepted.Receipt)
	assert.Equal(t, 1.5, accepted.Receipt.SizeKB)

	rejected := structured[CheckUploadResult](t, call(t, session, ToolCheckUpload, map[string]any{
		"file_name": "scan.png", "content_type": "image/png",
	}))
	assert.False(t, rejected.Accepted)
	assert.Equal(t, domain.NotificationDestructive, rejected.Notice.Variant)

	res := call(t, session, ToolCheckUpload, map[string]any{
		"file_name": "x.csv", "content_type": "text/csv", "size_bytes": -1,
	})
	assert.True(t, res.IsError)
}

func TestGenerateReport(t *testing.T) {
	session := connect(t)

	report := structured[service.Report](t, call(t, session, ToolGenerateReport, map[string]any{
		"inputs": map[string]any{
			"age": 45, "sex": "F", "systolic_bp": 150, "diastolic_bp": 95, "cholesterol": 180,
			"glucose": 130, "smoking": false, "bmi": 23.0, "physical_activity": 2,
		},
	}))
	assert.Equal(t, 2, report.PresentFactors)
	require.Len(t, report.Ranking, 3)
	assert.Equal(t, 1, report.Ranking[0].Rank)

	noSex := structured[service.Report](t, call(t, session, ToolGenerateReport, map[string]any{
		"inputs": map[string]any{"age": 70, "systolic_bp": 150},
	}))
	require.NotNil(t, noSex.Patient)
	assert.Equal(t, domain.Male, noSex.Patient.Sex)

	generic := structured[service.Report](t, call(t, session, ToolGenerateReport, nil))
	assert.Zero(t, generic.PresentFactors)
	assert.Len(t, generic.RiskFactors, 6)
}

func TestHistoryTools(t *testing.T) {
	session := connect(t)

	all := structured[ListHistoryResult](t, call(t, session, ToolListHistory, nil))
	assert.Equal(t, 4, all.Count)

	filtered := structured[ListHistoryResult](t, call(t, session, ToolListHistory, map[string]any{
		"algorithm": "randomForest",
	}))
	require.Equal(t, 2, filtered.Count)
	for _, e := range filtered.Entries {
		assert.Equal(t, domain.RandomForest, e.AlgorithmID)
	}

	paged := structured[ListHistoryResult](t, call(t, session, ToolListHistory, map[string]any{
		"limit": 1, "offset": 1,
	}))
	require.Len(t, paged.Entries, 1)
	assert.Equal(t, int64(2), paged.Entries[0].ID)

	res := call(t, session, ToolListHistory, map[string]any{"risk_level": "critical"})
	assert.True(t, res.IsError)

	stats := structured[domain.Statistics](t, call(t, session, ToolGetStatistics, nil))
	assert.Equal(t, 24, stats.TotalAnalyses)
	assert.Equal(t, 50.0, stats.AlgorithmShare[domain.RandomForest])
}

func TestNewLiteServer_SQLiteHistory(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.HistoryBackend = domain.HistoryBackendSQLite

	server, err := NewLiteServer(ctx, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer server.Close()

	assert.FileExists(t, cfg.HistoryDBPath())
	stats, err := server.history.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 24, stats.TotalAnalyses)
}

func TestNewLiteServer_WithHistory(t *testing.T) {
	cfg := config.DefaultLiteConfig()
	cfg.HistoryBackend = domain.HistoryBackendSQLite
	store := history.NewMemoryStore()

	server, err := NewLiteServer(context.Background(), cfg, WithLogger(quietLogger()), WithHistory(store))
	require.NoError(t, err)

	assert.Same(t, store, server.history)
	assert.NoError(t, server.Close())
}
