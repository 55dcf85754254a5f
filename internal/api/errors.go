package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardiopredict-server/internal/domain"
	"github.com/cardiopredict-server/internal/middleware"
	"github.com/cardiopredict-server/internal/session"
)

// errorResponse is the body of every failed request. Rejections shown to the user carry the
// notice to display.
type errorResponse struct {
	*domain.APIError
	Notice *domain.Notification `json:"notice,omitempty"`
}

func (s *Server) abort(c *gin.Context, status int, code, message, details string, notice *domain.Notification) {
	c.AbortWithStatusJSON(status, errorResponse{
		APIError: domain.NewAPIError(code, message, details, middleware.GetRequestID(c)),
		Notice:   notice,
	})
}

func (s *Server) badRequest(c *gin.Context, message string, err error) {
	s.abort(c, http.StatusBadRequest, domain.ErrInvalidInput, message, err.Error(), nil)
}

// respondError maps service errors to HTTP responses.
func (s *Server) respondError(c *gin.Context, err error) {
	var (
		missing     *domain.MissingFieldsError
		unsupported *domain.UnsupportedFileError
		validation  *domain.ValidationError
	)

	switch {
	case errors.As(err, &missing):
		s.abort(c, http.StatusBadRequest, domain.ErrValidation, "Required fields missing", err.Error(), &missing.Notice)
	case errors.As(err, &unsupported):
		s.abort(c, http.StatusUnsupportedMediaType, domain.ErrUnsupportedFile, "Unsupported file type", err.Error(), &unsupported.Notice)
	case errors.As(err, &validation):
		s.abort(c, http.StatusBadRequest, domain.ErrValidation, "Validation failed", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		s.abort(c, http.StatusNotFound, domain.ErrNotFoundCode, "Resource not found", err.Error(), nil)
	case errors.Is(err, domain.ErrUnknownAlgorithm),
		errors.Is(err, domain.ErrInvalidRiskLevel),
		errors.Is(err, session.ErrUnknownRoute),
		errors.Is(err, session.ErrInvalidTab),
		errors.Is(err, session.ErrUnknownField):
		s.abort(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid input", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		s.abort(c, http.StatusGatewayTimeout, domain.ErrInternalServer, "Request timed out", "", nil)
	default:
		s.log.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Error("Request failed")
		s.abort(c, http.StatusInternalServerError, domain.ErrInternalServer, "Internal server error", "", nil)
	}
}
