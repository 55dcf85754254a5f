package domain

import (
	"fmt"
	"strings"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput       = "INVALID_INPUT"
	ErrValidation         = "VALIDATION_ERROR"
	ErrUnsupportedFile    = "UNSUPPORTED_FILE_TYPE"
	ErrNotFoundCode       = "NOT_FOUND"
	ErrRateLimit          = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrStorageUnavailable = "STORAGE_UNAVAILABLE"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// MissingFieldsError is returned when a form is submitted with empty required fields.
// It carries the notice shown to the user.
type MissingFieldsError struct {
	Fields []string     `json:"fields"`
	Notice Notification `json:"notice"`
}

// Error implements the error interface
func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("required fields missing: %s", strings.Join(e.Fields, ", "))
}

// Unwrap lets callers match with errors.Is(err, ErrMissingFields).
func (e *MissingFieldsError) Unwrap() error {
	return ErrMissingFields
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// UnsupportedFileError is returned when an upload's content type is not Excel or CSV.
type UnsupportedFileError struct {
	ContentType string       `json:"content_type"`
	Notice      Notification `json:"notice"`
}

// Error implements the error interface
func (e *UnsupportedFileError) Error() string {
	return fmt.Sprintf("unsupported file type %q", e.ContentType)
}

// Unwrap lets callers match with errors.Is(err, ErrUnsupportedFileType).
func (e *UnsupportedFileError) Unwrap() error {
	return ErrUnsupportedFileType
}
