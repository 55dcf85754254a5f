package service

import (
	"fmt"
	"strings"

	"github.com/cardiopredict-server/internal/domain"
)

// Risk factor thresholds used by the recommendations report.
const (
	AgeRiskThreshold         = 60
	SystolicRiskThreshold    = 140
	CholesterolRiskThreshold = 200
	GlucoseRiskThreshold     = 125
	BMIRiskThreshold         = 25.0
)

// RiskFactor is one significant cardiovascular risk factor and the patient's standing on it.
type RiskFactor struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Target      string `json:"target"`
	Value       string `json:"value,omitempty"`
	Present     bool   `json:"present"`
}

// RankedAlgorithm is one line of the model accuracy ranking.
type RankedAlgorithm struct {
	Rank      int              `json:"rank"`
	Algorithm domain.Algorithm `json:"algorithm"`
	Name      string           `json:"name"`
	Accuracy  float64          `json:"accuracy"`
}

// Report is the content of the recommendations tab.
type Report struct {
	Introduction   string                `json:"introduction"`
	RiskFactors    []RiskFactor          `json:"risk_factors"`
	PresentFactors int                   `json:"present_factors"`
	Advice         []string              `json:"advice"`
	Ranking        []RankedAlgorithm     `json:"ranking"`
	RankingSummary string                `json:"ranking_summary"`
	Patient        *domain.PatientInputs `json:"patient,omitempty"`
}

var generalAdvice = []string{
	"Control periódico de presión arterial y perfil lipídico",
	"Dieta equilibrada baja en sodio y grasas saturadas",
	"Actividad física regular (mínimo 150 minutos semanales)",
	"Abandono del hábito tabáquico",
	"Control del estrés",
}

// ReportService builds the recommendations report.
type ReportService struct {
	catalog *AlgorithmCatalog
}

// NewReportService creates a report service over catalog.
func NewReportService(catalog *AlgorithmCatalog) *ReportService {
	return &ReportService{catalog: catalog}
}

// Generate builds the report. With nil inputs only the generic factor list is returned and
// no factor is marked present.
func (s *ReportService) Generate(inputs *domain.PatientInputs) *Report {
	report := &Report{
		Introduction: "En base a los resultados del análisis de algoritmos y las predicciones realizadas, podemos ofrecer las siguientes recomendaciones:",
		RiskFactors:  riskFactors(inputs),
		Advice:       append([]string(nil), generalAdvice...),
	}
	if inputs != nil {
		patient := *inputs
		report.Patient = &patient
	}
	for _, f := range report.RiskFactors {
		if f.Present {
			report.PresentFactors++
		}
	}

	for i, p := range s.catalog.Ranking() {
		report.Ranking = append(report.Ranking, RankedAlgorithm{
			Rank:      i + 1,
			Algorithm: p.Algorithm,
			Name:      p.Name,
			Accuracy:  p.Accuracy,
		})
	}
	report.RankingSummary = rankingSummary(report.Ranking)

	return report
}

func riskFactors(in *domain.PatientInputs) []RiskFactor {
	factors := []RiskFactor{
		{Key: "age", Description: "Edad avanzada (especialmente mayores de 60 años)", Target: fmt.Sprintf("<= %d años", AgeRiskThreshold)},
		{Key: "systolic_bp", Description: "Presión arterial elevada (sistólica > 140 mmHg)", Target: fmt.Sprintf("<= %d mmHg", SystolicRiskThreshold)},
		{Key: "cholesterol", Description: "Colesterol alto (> 200 mg/dL)", Target: fmt.Sprintf("<= %d mg/dL", CholesterolRiskThreshold)},
		{Key: "smoking", Description: "Hábito tabáquico", Target: "No fumador"},
		{Key: "glucose", Description: "Diabetes o niveles elevados de glucosa", Target: fmt.Sprintf("<= %d mg/dL", GlucoseRiskThreshold)},
		{Key: "bmi", Description: "Sobrepeso (IMC > 25)", Target: fmt.Sprintf("<= %.0f", BMIRiskThreshold)},
	}
	if in == nil {
		return factors
	}

	factors[0].Value, factors[0].Present = fmt.Sprintf("%d", in.Age), in.Age > AgeRiskThreshold
	factors[1].Value, factors[1].Present = fmt.Sprintf("%d", in.SystolicBP), in.SystolicBP > SystolicRiskThreshold
	factors[2].Value, factors[2].Present = fmt.Sprintf("%d", in.Cholesterol), in.Cholesterol > CholesterolRiskThreshold
	factors[3].Present = in.Smoking
	if in.Smoking {
		factors[3].Value = "Fumador"
	} else {
		factors[3].Value = "No fumador"
	}
	factors[4].Value, factors[4].Present = fmt.Sprintf("%d", in.Glucose), in.Glucose > GlucoseRiskThreshold
	factors[5].Value, factors[5].Present = fmt.Sprintf("%.1f", in.BMI), in.BMI > BMIRiskThreshold

	return factors
}

func rankingSummary(ranking []RankedAlgorithm) string {
	if len(ranking) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "El algoritmo %s ha demostrado ser el más preciso para la predicción de enfermedades cardiovasculares con un %.1f%% de precisión.",
		ranking[0].Name, ranking[0].Accuracy)

	rest := make([]string, 0, len(ranking)-1)
	for _, r := range ranking[1:] {
		rest = append(rest, fmt.Sprintf("%s con %.1f%%", r.Name, r.Accuracy))
	}
	if len(rest) > 0 {
		fmt.Fprintf(&b, " Le sigue %s.", strings.Join(rest, " y "))
	}
	return b.String()
}
