package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail,omitempty"`
	Instance  string            `json:"instance,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Item    string `json:"item,omitempty"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation         = "https://academia.app/errors/validation"
	ErrorTypeNotFound           = "https://academia.app/errors/not-found"
	ErrorTypeConflict           = "https://academia.app/errors/conflict"
	ErrorTypeUnprocessable      = "https://academia.app/errors/unprocessable"
	ErrorTypeServiceUnavailable = "https://academia.app/errors/service-unavailable"
	ErrorTypeInternal           = "https://academia.app/errors/internal"
)

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return c.JSON(http.StatusNotFound, ProblemDetails{
		Type:     ErrorTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return c.JSON(http.StatusConflict, ProblemDetails{
		Type:     ErrorTypeConflict,
		Title:    "Conflict",
		Status:   http.StatusConflict,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewUnprocessableError creates a response for well-formed input the ledger cannot apply
func NewUnprocessableError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnprocessableEntity, ProblemDetails{
		Type:     ErrorTypeUnprocessable,
		Title:    "Unprocessable Entity",
		Status:   http.StatusUnprocessableEntity,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewServiceUnavailableError creates a service unavailable error response
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return c.JSON(http.StatusServiceUnavailable, ProblemDetails{
		Type:     ErrorTypeServiceUnavailable,
		Title:    "Service Unavailable",
		Status:   http.StatusServiceUnavailable,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewRetryableError reports a failed write that left nothing behind
func NewRetryableError(c echo.Context, detail string) error {
	return c.JSON(http.StatusServiceUnavailable, ProblemDetails{
		Type:      ErrorTypeServiceUnavailable,
		Title:     "Service Unavailable",
		Status:    http.StatusServiceUnavailable,
		Detail:    detail,
		Instance:  c.Request().URL.Path,
		Retryable: true,
	})
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return c.JSON(http.StatusInternalServerError, ProblemDetails{
		Type:     ErrorTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// respondError maps ledger errors onto problem responses. action completes the
// "Failed to ..." message used for unexpected errors.
func respondError(c echo.Context, err error, studentID uuid.UUID, action string) error {
	var ve domain.ValidationError
	var infeasible domain.AllocationInfeasibleError
	var schedule domain.InvalidScheduleError

	switch {
	case errors.As(err, &ve):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: ve.Field, Item: ve.Item, Message: ve.Message},
		})
	case errors.Is(err, domain.ErrEnrollmentNotFound):
		return NewNotFoundError(c, "Student enrollment not found")
	case errors.Is(err, domain.ErrTransactionNotFound):
		return NewNotFoundError(c, "Transaction not found")
	case errors.Is(err, domain.ErrProofNotFound):
		return NewNotFoundError(c, "Payment proof not found")
	case errors.Is(err, domain.ErrExtraFeeNameDuplicate):
		return NewConflictError(c, "An extra fee with this name already exists")
	case errors.As(err, &infeasible):
		return NewUnprocessableError(c, infeasible.Error())
	case errors.As(err, &schedule):
		return NewUnprocessableError(c, schedule.Error())
	case service.IsRetryable(err):
		log.Error().Err(err).Str("student_id", studentID.String()).Msgf("Failed to %s", action)
		return NewRetryableError(c, "The ledger store is unavailable, nothing was recorded. Please retry.")
	}

	log.Error().Err(err).Str("student_id", studentID.String()).Msgf("Failed to %s", action)
	return NewInternalError(c, "Failed to "+action)
}

// NewInvalidStudentIDError writes the 400 for a malformed :studentId path parameter
func NewInvalidStudentIDError(c echo.Context) error {
	return NewValidationError(c, "Invalid student ID", []ValidationError{
		{Field: "studentId", Message: "Must be a UUID"},
	})
}
