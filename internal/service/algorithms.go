package service

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/montanaflynn/stats"

	"github.com/cardiopredict-server/internal/domain"
)

// Metric names one of the four display metrics of an algorithm profile.
type Metric string

const (
	MetricAccuracy  Metric = "accuracy"
	MetricPrecision Metric = "precision"
	MetricRecall    Metric = "recall"
	MetricF1Score   Metric = "f1_score"
)

// Metrics returns the metrics in chart order.
func Metrics() []Metric {
	return []Metric{MetricAccuracy, MetricPrecision, MetricRecall, MetricF1Score}
}

// Label returns the axis label of the comparison chart.
func (m Metric) Label() string {
	switch m {
	case MetricAccuracy:
		return "Precisión"
	case MetricPrecision:
		return "Valor-P"
	case MetricRecall:
		return "Recall"
	case MetricF1Score:
		return "F1-Score"
	default:
		return string(m)
	}
}

func (m Metric) value(p domain.AlgorithmProfile) float64 {
	switch m {
	case MetricAccuracy:
		return p.Accuracy
	case MetricPrecision:
		return p.Precision
	case MetricRecall:
		return p.Recall
	case MetricF1Score:
		return p.F1Score
	default:
		return math.NaN()
	}
}

var profiles = [domain.NumAlgorithms]domain.AlgorithmProfile{
	domain.J48 - 1: {
		Algorithm:   domain.J48,
		Name:        "J48 (C4.5)",
		Accuracy:    87.5,
		Precision:   86.2,
		Recall:      83.1,
		F1Score:     84.6,
		Color:       "#2486C5",
		Description: "Algoritmo de árbol de decisión que genera un árbol podado o no podado utilizando la estrategia divide y vencerás.",
	},
	domain.RandomForest - 1: {
		Algorithm:   domain.RandomForest,
		Name:        "Random Forest",
		Accuracy:    92.3,
		Precision:   91.7,
		Recall:      90.8,
		F1Score:     91.2,
		Color:       "#27AE60",
		Description: "Algoritmo de conjunto que combina múltiples árboles de decisión para mejorar la precisión y controlar el sobreajuste.",
	},
	domain.NaiveBayes - 1: {
		Algorithm:   domain.NaiveBayes,
		Name:        "Naive Bayes",
		Accuracy:    83.7,
		Precision:   82.5,
		Recall:      85.6,
		F1Score:     84.0,
		Color:       "#F39C12",
		Description: "Algoritmo probabilístico basado en el teorema de Bayes con la suposición de independencia entre predictores.",
	},
}

// AlgorithmCatalog serves the three fixed algorithm profiles. It only hands out copies.
type AlgorithmCatalog struct{}

// NewAlgorithmCatalog creates the catalog.
func NewAlgorithmCatalog() *AlgorithmCatalog {
	return &AlgorithmCatalog{}
}

// Profiles returns copies of every profile in display order.
func (c *AlgorithmCatalog) Profiles() []domain.AlgorithmProfile {
	out := make([]domain.AlgorithmProfile, 0, domain.NumAlgorithms)
	for _, alg := range domain.Algorithms() {
		out = append(out, profiles[alg.Index()])
	}
	return out
}

// Profile returns a copy of one profile.
func (c *AlgorithmCatalog) Profile(alg domain.Algorithm) (domain.AlgorithmProfile, error) {
	if !alg.IsValid() {
		return domain.AlgorithmProfile{}, fmt.Errorf("algorithm %s: %w", alg, domain.ErrNotFound)
	}
	return profiles[alg.Index()], nil
}

// Name returns the display name of alg, or an empty string when unselected.
func (c *AlgorithmCatalog) Name(alg domain.Algorithm) string {
	if !alg.IsValid() {
		return ""
	}
	return profiles[alg.Index()].Name
}

// ChartRow is one metric group of the comparison bar chart.
type ChartRow struct {
	Metric Metric                       `json:"metric"`
	Label  string                       `json:"label"`
	Values map[domain.Algorithm]float64 `json:"values"`
}

// ChartSeries describes one bar series (one algorithm) of the comparison chart.
type ChartSeries struct {
	Algorithm domain.Algorithm `json:"algorithm"`
	Name      string           `json:"name"`
	Color     string           `json:"color"`
}

// MetricSummary aggregates one metric across the three algorithms.
type MetricSummary struct {
	Metric Metric           `json:"metric"`
	Label  string           `json:"label"`
	Mean   float64          `json:"mean"`
	StdDev float64          `json:"std_dev"`
	Min    float64          `json:"min"`
	Max    float64          `json:"max"`
	Best   domain.Algorithm `json:"best"`
}

// Comparison is everything the comparison tab shows.
type Comparison struct {
	Profiles       []domain.AlgorithmProfile `json:"profiles"`
	Series         []ChartSeries             `json:"series"`
	Rows           []ChartRow                `json:"rows"`
	Summary        []MetricSummary           `json:"summary"`
	Recommended    domain.Algorithm          `json:"recommended"`
	Recommendation string                    `json:"recommendation"`
}

// ComparisonSeries returns the per-algorithm bar series and the metric-major chart rows.
func (c *AlgorithmCatalog) ComparisonSeries() ([]ChartSeries, []ChartRow) {
	all := c.Profiles()

	series := make([]ChartSeries, 0, len(all))
	for _, p := range all {
		series = append(series, ChartSeries{Algorithm: p.Algorithm, Name: p.Name, Color: p.Color})
	}

	rows := make([]ChartRow, 0, len(Metrics()))
	for _, metric := range Metrics() {
		row := ChartRow{Metric: metric, Label: metric.Label(), Values: make(map[domain.Algorithm]float64, len(all))}
		for _, p := range all {
			row.Values[p.Algorithm] = metric.value(p)
		}
		rows = append(rows, row)
	}

	return series, rows
}

// Summary aggregates every metric across the algorithms.
func (c *AlgorithmCatalog) Summary() ([]MetricSummary, error) {
	all := c.Profiles()
	out := make([]MetricSummary, 0, len(Metrics()))

	for _, metric := range Metrics() {
		values := make([]float64, 0, len(all))
		best := all[0]
		for _, p := range all {
			v := metric.value(p)
			values = append(values, v)
			if v > metric.value(best) {
				best = p
			}
		}

		summary, err := summarize(metric, values)
		if err != nil {
			return nil, fmt.Errorf("summarizing %s: %w", metric, err)
		}
		summary.Best = best.Algorithm
		out = append(out, summary)
	}

	return out, nil
}

// Compare builds everything the comparison tab shows.
func (c *AlgorithmCatalog) Compare() (*Comparison, error) {
	summary, err := c.Summary()
	if err != nil {
		return nil, err
	}
	series, rows := c.ComparisonSeries()

	top := c.Ranking()[0]
	return &Comparison{
		Profiles:    c.Profiles(),
		Series:      series,
		Rows:        rows,
		Summary:     summary,
		Recommended: top.Algorithm,
		Recommendation: fmt.Sprintf(
			"Basado en nuestro análisis, %s muestra el mejor rendimiento para la predicción de enfermedades cardiovasculares con una precisión del %.1f%%.",
			top.Name, top.Accuracy),
	}, nil
}

// Ranking returns the profiles ordered by accuracy, best first.
func (c *AlgorithmCatalog) Ranking() []domain.AlgorithmProfile {
	ranked := c.Profiles()
	slices.SortStableFunc(ranked, func(a, b domain.AlgorithmProfile) int {
		return cmp.Compare(b.Accuracy, a.Accuracy)
	})
	return ranked
}

func summarize(metric Metric, values []float64) (MetricSummary, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return MetricSummary{}, err
	}
	stdDev, err := stats.StandardDeviation(values)
	if err != nil {
		return MetricSummary{}, err
	}
	minV, err := stats.Min(values)
	if err != nil {
		return MetricSummary{}, err
	}
	maxV, err := stats.Max(values)
	if err != nil {
		return MetricSummary{}, err
	}

	return MetricSummary{
		Metric: metric,
		Label:  metric.Label(),
		Mean:   round(mean, 2),
		StdDev: round(stdDev, 2),
		Min:    minV,
		Max:    maxV,
	}, nil
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
