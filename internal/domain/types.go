// Package domain contains the core entities of the CardioPredict cardiovascular risk service:
// patient vitals, the closed set of classification algorithms, prediction results, and the
// fixed history catalog shown to users.
//
// None of the algorithms is a trained model. Their display metrics are constants and the risk
// estimate is a threshold rule with a small random jitter.
package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Algorithm is the closed set of classification algorithms the application presents.
// The zero value means no algorithm has been selected.
type Algorithm uint8

const (
	J48 Algorithm = iota + 1
	RandomForest
	NaiveBayes

	algorithmLimit
)

// NumAlgorithms is the number of selectable algorithms.
const NumAlgorithms = int(algorithmLimit) - 1

// Per-algorithm tables are sized by NumAlgorithms. This stops compiling when the set changes.
var _ = [1]struct{}{}[NumAlgorithms-3]

// Algorithms returns every algorithm in display order.
func Algorithms() []Algorithm {
	return []Algorithm{J48, RandomForest, NaiveBayes}
}

var algorithmIDs = [NumAlgorithms]string{
	J48 - 1:          "j48",
	RandomForest - 1: "randomForest",
	NaiveBayes - 1:   "naiveBayes",
}

// Validation errors
var (
	ErrNotFound            = errors.New("not found")
	ErrUnknownAlgorithm    = errors.New("unknown algorithm")
	ErrInvalidSex          = errors.New("invalid sex")
	ErrInvalidActivity     = errors.New("invalid physical activity level")
	ErrInvalidRiskLevel    = errors.New("invalid risk level")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrMissingFields       = errors.New("required fields missing")
)

// IsValid reports whether a is one of the selectable algorithms.
func (a Algorithm) IsValid() bool {
	return a >= J48 && a < algorithmLimit
}

// ID returns the wire identifier ("j48", "randomForest", "naiveBayes").
// Unselected or out-of-range values return an empty string.
func (a Algorithm) ID() string {
	if !a.IsValid() {
		return ""
	}
	return algorithmIDs[a-1]
}

// String returns the wire identifier, or "unselected".
func (a Algorithm) String() string {
	if !a.IsValid() {
		return "unselected"
	}
	return a.ID()
}

// Index returns the zero-based table index of a valid algorithm.
func (a Algorithm) Index() int {
	return int(a) - 1
}

// ParseAlgorithm maps a wire identifier to an Algorithm. Matching ignores case.
func ParseAlgorithm(id string) (Algorithm, error) {
	for i, known := range algorithmIDs {
		if strings.EqualFold(known, strings.TrimSpace(id)) {
			return Algorithm(i + 1), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, id)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.ID()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string leaves a unselected.
func (a *Algorithm) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*a = 0
		return nil
	}
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sex of the patient as captured on the forms.
type Sex string

const (
	Male   Sex = "M"
	Female Sex = "F"
)

// IsValid reports whether s is M or F.
func (s Sex) IsValid() bool {
	return s == Male || s == Female
}

// PhysicalActivity is the self-reported activity level.
type PhysicalActivity int

const (
	Sedentary PhysicalActivity = iota
	ModerateActivity
	IntenseActivity
)

// IsValid reports whether p is one of the three levels.
func (p PhysicalActivity) IsValid() bool {
	return p >= Sedentary && p <= IntenseActivity
}

// Label returns the label shown on the prediction form.
func (p PhysicalActivity) Label() string {
	switch p {
	case Sedentary:
		return "Sedentario"
	case ModerateActivity:
		return "Moderada"
	case IntenseActivity:
		return "Intensa"
	default:
		return "Desconocida"
	}
}

// PatientInputs holds the vitals of one patient. Values are transient and never persisted.
type PatientInputs struct {
	Age              int              `json:"age" validate:"gte=0"`
	Sex              Sex              `json:"sex" validate:"oneof=M F"`
	SystolicBP       int              `json:"systolic_bp" validate:"gte=0"`
	DiastolicBP      int              `json:"diastolic_bp" validate:"gte=0"`
	Cholesterol      int              `json:"cholesterol" validate:"gte=0"`
	Glucose          int              `json:"glucose" validate:"gte=0"`
	Smoking          bool             `json:"smoking"`
	BMI              float64          `json:"bmi" validate:"gte=0"`
	PhysicalActivity PhysicalActivity `json:"physical_activity" validate:"gte=0,lte=2"`
}

// DefaultPredictionInputs returns the values the prediction form starts with.
func DefaultPredictionInputs() PatientInputs {
	return PatientInputs{
		Age:              65,
		Sex:              Male,
		SystolicBP:       140,
		DiastolicBP:      90,
		Cholesterol:      220,
		Glucose:          100,
		Smoking:          true,
		BMI:              28.5,
		PhysicalActivity: Sedentary,
	}
}

// RiskBucket is the outcome of the threshold rule, before jitter.
type RiskBucket string

const (
	BucketLow      RiskBucket = "low"
	BucketModerate RiskBucket = "moderate"
	BucketHigh     RiskBucket = "high"
)

// BaseRisk returns the base risk value of the bucket.
func (b RiskBucket) BaseRisk() float64 {
	switch b {
	case BucketHigh:
		return 0.85
	case BucketModerate:
		return 0.60
	default:
		return 0.25
	}
}

// PredictionResult is one estimator output. Both fields lie in [0,1].
type PredictionResult struct {
	Risk       float64 `json:"risk"`
	Confidence float64 `json:"confidence"`
}

// RiskLevel is the display classification of a final risk value or a history entry.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
)

// RiskLevelFor classifies a final risk value the way the prediction panel colours it.
func RiskLevelFor(risk float64) RiskLevel {
	switch {
	case risk > 0.7:
		return RiskHigh
	case risk > 0.4:
		return RiskModerate
	default:
		return RiskLow
	}
}

// Label returns the Spanish label used on result panels and history badges.
func (l RiskLevel) Label() string {
	switch l {
	case RiskHigh:
		return "Alto"
	case RiskModerate, RiskMedium:
		return "Moderado"
	case RiskLow:
		return "Bajo"
	default:
		return "Desconocido"
	}
}

// ParseHistoryRiskLevel parses the risk level vocabulary of history entries.
func ParseHistoryRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskLow:
		return RiskLow, nil
	case RiskMedium, RiskModerate:
		return RiskMedium, nil
	case RiskHigh:
		return RiskHigh, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRiskLevel, s)
	}
}

// AlgorithmProfile is the static display record of one algorithm. Metrics are percentages.
type AlgorithmProfile struct {
	Algorithm   Algorithm `json:"id"`
	Name        string    `json:"name"`
	Accuracy    float64   `json:"accuracy"`
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	F1Score     float64   `json:"f1_score"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
}

// HistoryEntry is one row of the fixed analysis history.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	FileName    string    `json:"file_name"`
	AlgorithmID Algorithm `json:"algorithm_id"`
	Algorithm   string    `json:"algorithm"`
	Accuracy    float64   `json:"accuracy"`
	Result      string    `json:"result"`
	RiskLevel   RiskLevel `json:"risk_level"`
}

// Statistics is the summary shown on the statistics tab.
type Statistics struct {
	TotalAnalyses         int                   `json:"total_analyses"`
	AverageAccuracy       float64               `json:"average_accuracy"`
	MostAccurateAlgorithm string                `json:"most_accurate_algorithm"`
	AlgorithmDistribution map[Algorithm]int     `json:"algorithm_distribution"`
	RiskDistribution      map[RiskLevel]int     `json:"risk_distribution"`
	AlgorithmShare        map[Algorithm]float64 `json:"algorithm_share"`
}

// Share returns count/total as a percentage rounded to one decimal.
func Share(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// NotificationVariant styles a notification.
type NotificationVariant string

const (
	NotificationDefault     NotificationVariant = "default"
	NotificationDestructive NotificationVariant = "destructive"
)

// Notification is a short user-facing notice, optionally followed by a navigation.
type Notification struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Variant     NotificationVariant `json:"variant"`
	Redirect    string              `json:"redirect,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}
