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

// PaymentHandler handles payment transaction HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// DiscountRequest represents the optional discount of a payment request
type DiscountRequest struct {
	Kind   string  `json:"kind" validate:"required,oneof=fixed percentage"`
	Value  string  `json:"value" validate:"required,decimal"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// PaymentRequest represents the process/preview payment request body
type PaymentRequest struct {
	Installments []int32          `json:"installments" validate:"omitempty,dive,min=1"`
	ExtraFeeIDs  []string         `json:"extraFeeIds" validate:"omitempty,dive,uuid"`
	Amount       string           `json:"amount" validate:"required,decimal"`
	Discount     *DiscountRequest `json:"discount"`
	Method       string           `json:"method" validate:"required"`
	Date         *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes        *string          `json:"notes" validate:"omitempty,max=1000"`
}

// ProcessPayment handles POST /api/v1/students/:studentId/payments
func (h *PaymentHandler) ProcessPayment(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	var req PaymentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	result, err := h.paymentService.ProcessPayment(c.Request().Context(), toPaymentInput(studentID, req))
	if err != nil {
		return respondError(c, err, studentID, "process payment")
	}

	return c.JSON(http.StatusCreated, result)
}

// PreviewPayment handles POST /api/v1/students/:studentId/payments/preview
func (h *PaymentHandler) PreviewPayment(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	var req PaymentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	result, err := h.paymentService.PreviewPayment(c.Request().Context(), toPaymentInput(studentID, req))
	if err != nil {
		return respondError(c, err, studentID, "preview payment")
	}

	return c.JSON(http.StatusOK, result)
}

// GetPaymentHistory handles GET /api/v1/students/:studentId/payments
func (h *PaymentHandler) GetPaymentHistory(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	payments, err := h.paymentService.GetPaymentHistory(c.Request().Context(), studentID)
	if err != nil {
		return respondError(c, err, studentID, "get payment history")
	}

	return c.JSON(http.StatusOK, payments)
}

// GetTransaction handles GET /api/v1/students/:studentId/transactions/:transactionId
func (h *PaymentHandler) GetTransaction(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	transactionID, err := uuid.Parse(c.Param("transactionId"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	txn, err := h.paymentService.GetTransaction(c.Request().Context(), studentID, transactionID)
	if err != nil {
		return respondError(c, err, studentID, "get transaction")
	}

	return c.JSON(http.StatusOK, txn)
}

// toPaymentInput converts a validated request; decimal, uuid and date fields have
// already passed their validation tags
func toPaymentInput(studentID uuid.UUID, req PaymentRequest) service.ProcessPaymentInput {
	input := service.ProcessPaymentInput{
		StudentID:    studentID,
		Installments: req.Installments,
		Amount:       decimal.RequireFromString(req.Amount),
		Method:       domain.PaymentMethod(req.Method),
		Notes:        req.Notes,
	}

	for _, id := range req.ExtraFeeIDs {
		input.ExtraFeeIDs = append(input.ExtraFeeIDs, uuid.MustParse(id))
	}

	if req.Discount != nil {
		input.Discount = &service.DiscountInput{
			Kind:   domain.DiscountKind(req.Discount.Kind),
			Value:  decimal.RequireFromString(req.Discount.Value),
			Reason: req.Discount.Reason,
		}
	}

	if req.Date != nil {
		if date, err := time.Parse("2006-01-02", *req.Date); err == nil {
			input.Date = &date
		}
	}

	return input
}
