package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiopredict-server/internal/domain"
	"github.com/cardiopredict-server/internal/service"
)

func TestNew_Defaults(t *testing.T) {
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	w := New("ws-1", now)

	assert.Equal(t, RouteHome, w.Route)
	assert.Empty(t, w.Tab)
	assert.Equal(t, domain.RandomForest, w.SelectedAlgorithm)
	assert.Equal(t, domain.DefaultPredictionInputs(), w.PredictionForm)
	assert.Equal(t, service.NewManualEntryForm(), w.ManualForm)
	assert.Nil(t, w.PatientData)
	assert.Nil(t, w.Upload)
	assert.Nil(t, w.LastPrediction)
	assert.Equal(t, now, w.CreatedAt)
}

func TestNavigation(t *testing.T) {
	items := Navigation()
	require.Len(t, items, 4)
	assert.Equal(t, NavItem{Label: "Inicio", Route: RouteHome}, items[0])
	assert.Equal(t, NavItem{Label: "Historial", Route: RouteHistory}, items[3])
}

func TestWorkspace_Navigate(t *testing.T) {
	tests := []struct {
		name    string
		route   string
		wantTab Tab
		wantErr bool
	}{
		{"home", "/", "", false},
		{"upload", "/upload", "", false},
		{"algorithms", "/algorithms", TabComparison, false},
		{"history", "/history", TabHistory, false},
		{"trimmed", " /history ", TabHistory, false},
		{"unknown", "/settings", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New("ws", time.Now())
			err := w.Navigate(tt.route)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnknownRoute))
				assert.Equal(t, RouteHome, w.Route)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTab, w.Tab)
		})
	}
}

func TestWorkspace_SelectTab(t *testing.T) {
	w := New("ws", time.Now())

	err := w.SelectTab("report")
	assert.True(t, errors.Is(err, ErrInvalidTab), "home has no tabs")

	require.NoError(t, w.Navigate("/algorithms"))
	require.NoError(t, w.SelectTab("report"))
	assert.Equal(t, TabReport, w.Tab)

	err = w.SelectTab("statistics")
	assert.True(t, errors.Is(err, ErrInvalidTab))
	assert.Equal(t, TabReport, w.Tab)

	require.NoError(t, w.Navigate("/history"))
	require.NoError(t, w.SelectTab("statistics"))
	assert.Equal(t, TabStatistics, w.Tab)
}

func TestRoute_Tabs(t *testing.T) {
	tabs := RouteAlgorithms.Tabs()
	assert.Equal(t, []Tab{TabComparison, TabPrediction, TabReport}, tabs)

	tabs[0] = TabHistory
	assert.Equal(t, TabComparison, RouteAlgorithms.DefaultTab())
	assert.Empty(t, RouteUpload.Tabs())
}

func TestWorkspace_SelectAlgorithm(t *testing.T) {
	w := New("ws", time.Now())

	require.NoError(t, w.SelectAlgorithm("naiveBayes"))
	assert.Equal(t, domain.NaiveBayes, w.SelectedAlgorithm)

	err := w.SelectAlgorithm("svm")
	assert.True(t, errors.Is(err, domain.ErrUnknownAlgorithm))
	assert.Equal(t, domain.NaiveBayes, w.SelectedAlgorithm)
}

func TestWorkspace_SetPredictionField(t *testing.T) {
	tests := []struct {
		field   string
		value   string
		check   func(t *testing.T, in domain.PatientInputs)
		wantErr bool
	}{
		{field: "age", value: "65", check: func(t *testing.T, in domain.PatientInputs) { assert.Equal(t, 65, in.Age) }},
		{field: "systolic_bp", value: "150", check: func(t *testing.T, in domain.PatientInputs) { assert.Equal(t, 150, in.SystolicBP) }},
		{field: "diastolic_bp", value: "95", check: func(t *testing.T, in domain.PatientInputs) { assert.Equal(t, 95, in.DiastolicBP) }},
		{field: "cholesterol", value: "240", check: func(t *testing.T, in domain.PatientInputs) { assert.Equal(t, 240, in.Cholesterol) }},
		{field: "glucose", value: "130", check: func(t *testing.T, in domain.PatientInputs) { assert.Equal(t, 130, in.Glucose) }},
		{field: "bmi", value: "27.5", check: func(t *testing.T, in domain.PatientInputs) { assert.Equal(t, 27.5, in.BMI) }},
		{field: "sex", value: "f", check: func(t *testing.T, in domain.PatientInputs) { assert.Equal(t, domain.Sex("F"), in.Sex) }},
		{field: "smoking", value: "0", check: func(t *testing.T, in domain.PatientInputs) { assert.False(t, in.Smoking) }},
		{field: "physical_activity", value: "2", check: func(t *testing.T, in domain.PatientInputs) { assert.Equal(t, domain.PhysicalActivity(2), in.PhysicalActivity) }},
		{field: "age", value: "abc", wantErr: true},
		{field: "bmi", value: "", wantErr: true},
		{field: "sex", value: "X", wantErr: true},
		{field: "smoking", value: "yes", wantErr: true},
		{field: "physical_activity", value: "3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			w := New("ws", time.Now())
			before := w.PredictionForm

			err := w.SetPredictionField(tt.field, tt.value)
			if tt.wantErr {
				var verr *domain.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.field, verr.Field)
				assert.Equal(t, before, w.PredictionForm)
				return
			}
			require.NoError(t, err)
			tt.check(t, w.PredictionForm)
		})
	}
}

func TestWorkspace_SetPredictionFieldUnknown(t *testing.T) {
	w := New("ws", time.Now())
	err := w.SetPredictionField("weight", "80")
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestWorkspace_Record(t *testing.T) {
	w := New("ws", time.Now())

	form := service.ManualEntryForm{Age: "50", Sex: "F", Systolic: "120", Diastolic: "80", Cholesterol: "190", Glucose: "90"}
	inputs := domain.PatientInputs{Age: 50, Sex: "F", SystolicBP: 120, DiastolicBP: 80, Cholesterol: 190, Glucose: 90}
	w.RecordManualEntry(form, inputs)
	require.NotNil(t, w.PatientData)
	assert.Equal(t, 50, w.PatientData.Age)
	assert.Equal(t, "50", w.ManualForm.Age)

	inputs.Age = 99
	assert.Equal(t, 50, w.PatientData.Age, "recorded inputs are a copy")

	w.RecordUpload(service.UploadReceipt{FileName: "a.csv", ContentType: "text/csv", SizeBytes: 2048, SizeKB: 2})
	require.NotNil(t, w.Upload)
	assert.Equal(t, "a.csv", w.Upload.FileName)

	w.RecordPrediction(&service.Prediction{Algorithm: domain.J48, Risk: 0.5})
	require.NotNil(t, w.LastPrediction)
	assert.Equal(t, domain.J48, w.LastPrediction.Algorithm)
}
