package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardiopredict-server/internal/domain"
)

// DefaultManualEntryDelay is the simulated processing time before the follow-up notice.
const DefaultManualEntryDelay = 1000 * time.Millisecond

// RouteAlgorithms is where both intake flows send the user after a successful submission.
const RouteAlgorithms = "/algorithms"

// ManualEntryForm holds the manual-entry fields exactly as typed.
type ManualEntryForm struct {
	Age         string `json:"age"`
	Sex         string `json:"sex"`
	Systolic    string `json:"systolic"`
	Diastolic   string `json:"diastolic"`
	Cholesterol string `json:"cholesterol"`
	Glucose     string `json:"glucose"`
	Smoker      bool   `json:"smoker"`
}

// NewManualEntryForm returns the form in its initial state.
func NewManualEntryForm() ManualEntryForm {
	return ManualEntryForm{Sex: string(domain.Male)}
}

// IntakeResult is an accepted submission and the notice to show once processing finishes.
type IntakeResult struct {
	Inputs domain.PatientInputs `json:"inputs"`
	Notice domain.Notification  `json:"notice"`
	Delay  time.Duration        `json:"delay"`
}

// IntakeService validates the manual-entry form.
type IntakeService struct {
	delay  time.Duration
	logger *logrus.Logger
}

// NewIntakeService creates an intake service. A negative delay is treated as zero.
func NewIntakeService(logger *logrus.Logger, delay time.Duration) *IntakeService {
	if delay < 0 {
		delay = 0
	}
	return &IntakeService{delay: delay, logger: logger}
}

// MissingDataNotice is shown when required manual-entry fields are empty.
func MissingDataNotice() domain.Notification {
	return domain.Notification{
		Title:       "Faltan datos requeridos",
		Description: "Por favor completa todos los campos obligatorios.",
		Variant:     domain.NotificationDestructive,
	}
}

// DataProcessedNotice follows a successful manual entry.
func DataProcessedNotice() domain.Notification {
	return domain.Notification{
		Title:       "Datos procesados correctamente",
		Description: "Los datos han sido preparados para análisis.",
		Variant:     domain.NotificationDefault,
		Redirect:    RouteAlgorithms,
	}
}

type requiredField struct {
	name  string
	value func(ManualEntryForm) string
	set   func(*domain.PatientInputs, int)
}

var requiredFields = []requiredField{
	{"age", func(f ManualEntryForm) string { return f.Age }, func(p *domain.PatientInputs, v int) { p.Age = v }},
	{"systolic", func(f ManualEntryForm) string { return f.Systolic }, func(p *domain.PatientInputs, v int) { p.SystolicBP = v }},
	{"diastolic", func(f ManualEntryForm) string { return f.Diastolic }, func(p *domain.PatientInputs, v int) { p.DiastolicBP = v }},
	{"cholesterol", func(f ManualEntryForm) string { return f.Cholesterol }, func(p *domain.PatientInputs, v int) { p.Cholesterol = v }},
	{"glucose", func(f ManualEntryForm) string { return f.Glucose }, func(p *domain.PatientInputs, v int) { p.Glucose = v }},
}

// SubmitManualEntry validates form. Empty required fields yield a *domain.MissingFieldsError
// carrying the destructive notice; values that are not whole numbers yield a
// *domain.ValidationError. Nothing is returned on rejection, so callers keep their state.
func (s *IntakeService) SubmitManualEntry(form ManualEntryForm) (*IntakeResult, error) {
	var missing []string
	for _, field := range requiredFields {
		if strings.TrimSpace(field.value(form)) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		intakeOutcomes.WithLabelValues("manual", "rejected").Inc()
		s.log().WithField("missing", missing).Info("Manual entry rejected")
		return nil, &domain.MissingFieldsError{Fields: missing, Notice: MissingDataNotice()}
	}

	inputs := domain.PatientInputs{Smoking: form.Smoker, PhysicalActivity: domain.Sedentary}

	sex := domain.Sex(strings.ToUpper(strings.TrimSpace(form.Sex)))
	if sex == "" {
		sex = domain.Male
	}
	if !sex.IsValid() {
		return nil, domain.NewValidationError("sex", "must be M or F", form.Sex)
	}
	inputs.Sex = sex

	for _, field := range requiredFields {
		raw := strings.TrimSpace(field.value(form))
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, domain.NewValidationError(field.name, "must be a whole number", raw)
		}
		if v < 0 {
			return nil, domain.NewValidationError(field.name, "must not be negative", v)
		}
		field.set(&inputs, v)
	}

	intakeOutcomes.WithLabelValues("manual", "accepted").Inc()

	notice := DataProcessedNotice()
	notice.CreatedAt = time.Now().UTC()

	s.log().WithFields(logrus.Fields{
		"age":    inputs.Age,
		"sex":    inputs.Sex,
		"smoker": inputs.Smoking,
	}).Debug("Manual entry accepted")

	return &IntakeResult{Inputs: inputs, Notice: notice, Delay: s.delay}, nil
}

func (s *IntakeService) log() logrus.FieldLogger {
	if s.logger == nil {
		return logrus.StandardLogger()
	}
	return s.logger
}
