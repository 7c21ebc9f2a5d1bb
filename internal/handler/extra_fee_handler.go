package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ExtraFeeHandler handles extra fee HTTP requests
type ExtraFeeHandler struct {
	extraFeeService *service.ExtraFeeService
}

// NewExtraFeeHandler creates a new ExtraFeeHandler
func NewExtraFeeHandler(extraFeeService *service.ExtraFeeService) *ExtraFeeHandler {
	return &ExtraFeeHandler{extraFeeService: extraFeeService}
}

// CreateExtraFeeRequest represents the create extra fee request body
type CreateExtraFeeRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Amount string `json:"amount" validate:"required,decimal"`
}

// CreateExtraFee handles POST /api/v1/students/:studentId/extra-fees
func (h *ExtraFeeHandler) CreateExtraFee(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	var req CreateExtraFeeRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	fee, err := h.extraFeeService.CreateExtraFee(c.Request().Context(), studentID, service.CreateExtraFeeInput{
		Name:   req.Name,
		Amount: decimal.RequireFromString(req.Amount),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNameRequired):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Is required"},
			})
		case errors.Is(err, domain.ErrNameTooLong):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Must be at most 200 characters"},
			})
		case errors.Is(err, domain.ErrExtraFeeAmountInvalid):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "amount", Message: "Amount must be positive"},
			})
		}
		return respondError(c, err, studentID, "create extra fee")
	}

	return c.JSON(http.StatusCreated, fee)
}

// ListExtraFees handles GET /api/v1/students/:studentId/extra-fees
func (h *ExtraFeeHandler) ListExtraFees(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	fees, err := h.extraFeeService.ListExtraFees(c.Request().Context(), studentID)
	if err != nil {
		return respondError(c, err, studentID, "list extra fees")
	}

	return c.JSON(http.StatusOK, fees)
}
