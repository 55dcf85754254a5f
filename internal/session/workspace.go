// Package session keeps the per-visitor UI state of the application: the current page and tab,
// the form contents and the last results. State is transient and expires when idle.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cardiopredict-server/internal/domain"
	"github.com/cardiopredict-server/internal/service"
)

// Session errors
var (
	ErrUnknownRoute = errors.New("unknown route")
	ErrInvalidTab   = errors.New("invalid tab for route")
	ErrUnknownField = errors.New("unknown prediction field")
)

// Route is one of the four pages.
type Route string

const (
	RouteHome       Route = "/"
	RouteUpload     Route = "/upload"
	RouteAlgorithms Route = "/algorithms"
	RouteHistory    Route = "/history"
)

// Tab is a sub-view of a page.
type Tab string

const (
	TabComparison Tab = "comparison"
	TabPrediction Tab = "prediction"
	TabReport     Tab = "report"
	TabHistory    Tab = "history"
	TabStatistics Tab = "statistics"
)

var routeTabs = map[Route][]Tab{
	RouteHome:       nil,
	RouteUpload:     nil,
	RouteAlgorithms: {TabComparison, TabPrediction, TabReport},
	RouteHistory:    {TabHistory, TabStatistics},
}

// NavItem is one entry of the header navigation.
type NavItem struct {
	Label string `json:"label"`
	Route Route  `json:"route"`
}

// Navigation returns the header navigation in display order.
func Navigation() []NavItem {
	return []NavItem{
		{Label: "Inicio", Route: RouteHome},
		{Label: "Subir Datos", Route: RouteUpload},
		{Label: "Algoritmos", Route: RouteAlgorithms},
		{Label: "Historial", Route: RouteHistory},
	}
}

// ParseRoute validates a route path.
func ParseRoute(s string) (Route, error) {
	r := Route(strings.TrimSpace(s))
	if _, ok := routeTabs[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, s)
	}
	return r, nil
}

// Tabs returns the tabs available on r, first one being the default.
func (r Route) Tabs() []Tab {
	return append([]Tab(nil), routeTabs[r]...)
}

// DefaultTab returns the tab selected when arriving on r, or "" for pages without tabs.
func (r Route) DefaultTab() Tab {
	tabs := routeTabs[r]
	if len(tabs) == 0 {
		return ""
	}
	return tabs[0]
}

// Workspace is the explicit UI state of one visitor.
type Workspace struct {
	ID                string                  `json:"id"`
	Route             Route                   `json:"route"`
	Tab               Tab                     `json:"tab,omitempty"`
	ManualForm        service.ManualEntryForm `json:"manual_form"`
	PredictionForm    domain.PatientInputs    `json:"prediction_form"`
	SelectedAlgorithm domain.Algorithm        `json:"selected_algorithm"`
	PatientData       *domain.PatientInputs   `json:"patient_data,omitempty"`
	Upload            *service.UploadReceipt  `json:"upload,omitempty"`
	LastPrediction    *service.Prediction     `json:"last_prediction,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// New returns a workspace on the home page with the initial form values.
func New(id string, now time.Time) *Workspace {
	return &Workspace{
		ID:                id,
		Route:             RouteHome,
		ManualForm:        service.NewManualEntryForm(),
		PredictionForm:    domain.DefaultPredictionInputs(),
		SelectedAlgorithm: domain.RandomForest,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Navigate moves to route and selects its default tab.
func (w *Workspace) Navigate(route string) error {
	r, err := ParseRoute(route)
	if err != nil {
		return err
	}
	w.Route = r
	w.Tab = r.DefaultTab()
	return nil
}

// SelectTab switches to tab, which must belong to the current route.
func (w *Workspace) SelectTab(tab string) error {
	t := Tab(strings.TrimSpace(tab))
	for _, allowed := range routeTabs[w.Route] {
		if allowed == t {
			w.Tab = t
			return nil
		}
	}
	return fmt.Errorf("%w: %q on %s", ErrInvalidTab, tab, w.Route)
}

// SelectAlgorithm changes the algorithm used for the next prediction.
func (w *Workspace) SelectAlgorithm(id string) error {
	alg, err := domain.ParseAlgorithm(id)
	if err != nil {
		return err
	}
	w.SelectedAlgorithm = alg
	return nil
}

// SetPredictionField updates one field of the prediction form from its text value.
// Field names are the JSON names of domain.PatientInputs.
func (w *Workspace) SetPredictionField(field, value string) error {
	value = strings.TrimSpace(value)
	form := &w.PredictionForm

	setInt := func(dst *int) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return domain.NewValidationError(field, "must be a whole number", value)
		}
		*dst = v
		return nil
	}

	switch field {
	case "age":
		return setInt(&form.Age)
	case "systolic_bp":
		return setInt(&form.SystolicBP)
	case "diastolic_bp":
		return setInt(&form.DiastolicBP)
	case "cholesterol":
		return setInt(&form.Cholesterol)
	case "glucose":
		return setInt(&form.Glucose)
	case "bmi":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return domain.NewValidationError(field, "must be a number", value)
		}
		form.BMI = v
	case "sex":
		sex := domain.Sex(strings.ToUpper(value))
		if !sex.IsValid() {
			return domain.NewValidationError(field, "must be M or F", value)
		}
		form.Sex = sex
	case "smoking":
		switch value {
		case "1", "true":
			form.Smoking = true
		case "0", "false":
			form.Smoking = false
		default:
			return domain.NewValidationError(field, "must be 0 or 1", value)
		}
	case "physical_activity":
		var level int
		if err := setInt(&level); err != nil {
			return err
		}
		activity := domain.PhysicalActivity(level)
		if !activity.IsValid() {
			return domain.NewValidationError(field, "must be 0, 1 or 2", level)
		}
		form.PhysicalActivity = activity
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// RecordManualEntry stores an accepted manual entry. The form keeps its contents.
func (w *Workspace) RecordManualEntry(form service.ManualEntryForm, inputs domain.PatientInputs) {
	w.ManualForm = form
	w.PatientData = &inputs
}

// RecordUpload stores the receipt of an accepted upload.
func (w *Workspace) RecordUpload(receipt service.UploadReceipt) {
	w.Upload = &receipt
}

// RecordPrediction stores the last prediction shown on the prediction tab.
func (w *Workspace) RecordPrediction(p *service.Prediction) {
	w.LastPrediction = p
}
