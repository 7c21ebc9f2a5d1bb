package handler

import (
	"net/http"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// EnrollmentHandler handles installment plan edits
type EnrollmentHandler struct {
	enrollmentService *service.EnrollmentService
}

// NewEnrollmentHandler creates a new EnrollmentHandler
func NewEnrollmentHandler(enrollmentService *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: enrollmentService}
}

// InstallmentRequest represents one entry of an edited installment plan
type InstallmentRequest struct {
	Number     int32   `json:"number" validate:"min=0"`
	Name       string  `json:"name" validate:"max=200"`
	DueDate    *string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	MonthLabel string  `json:"monthLabel" validate:"max=50"`
	Amount     string  `json:"amount" validate:"required,decimal"`
}

// UpdateInstallmentsRequest represents the update installments request body
type UpdateInstallmentsRequest struct {
	Installments []InstallmentRequest `json:"installments" validate:"required,min=1,dive"`
}

// UpdateInstallments handles PUT /api/v1/students/:studentId/installments
func (h *EnrollmentHandler) UpdateInstallments(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	var req UpdateInstallmentsRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	overrides := make([]domain.InstallmentOverride, len(req.Installments))
	for i, inst := range req.Installments {
		overrides[i] = domain.InstallmentOverride{
			Number:     inst.Number,
			Name:       inst.Name,
			MonthLabel: inst.MonthLabel,
			Amount:     decimal.RequireFromString(inst.Amount),
		}
		if inst.DueDate != nil {
			if due, err := time.Parse("2006-01-02", *inst.DueDate); err == nil {
				overrides[i].DueDate = &due
			}
		}
	}

	ledger, err := h.enrollmentService.UpdateInstallments(c.Request().Context(), studentID, overrides)
	if err != nil {
		return respondError(c, err, studentID, "update installments")
	}

	return c.JSON(http.StatusOK, ledger)
}
