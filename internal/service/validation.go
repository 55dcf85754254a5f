package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cardiopredict-server/internal/domain"
)

// inputsValidate checks PatientInputs at the API and tool boundaries.
var inputsValidate *validator.Validate

func init() {
	inputsValidate = validator.New()

	// Report JSON field names instead of Go field names.
	inputsValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateInputs checks that vitals are non-negative, sex is M or F and the activity level
// is 0, 1 or 2. The first failing field is reported as a *domain.ValidationError.
func ValidateInputs(inputs domain.PatientInputs) error {
	err := inputsValidate.Struct(inputs)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating patient inputs: %w", err)
	}

	fe := fieldErrs[0]
	return domain.NewValidationError(fe.Field(), describeRule(fe), fe.Value())
}

// NormalizeInputs fills an omitted sex with M, as the manual form does, and validates the
// result.
func NormalizeInputs(inputs domain.PatientInputs) (domain.PatientInputs, error) {
	if inputs.Sex == "" {
		inputs.Sex = domain.Male
	}
	if err := ValidateInputs(inputs); err != nil {
		return domain.PatientInputs{}, err
	}
	return inputs, nil
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
