package handler

import (
	"net/http"

	"github.com/dafibh/academia/academia-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// LedgerHandler serves computed ledger and schedule views
type LedgerHandler struct {
	ledgerService *service.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// GetLedger handles GET /api/v1/students/:studentId/ledger
func (h *LedgerHandler) GetLedger(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	ledger, err := h.ledgerService.GetLedger(c.Request().Context(), studentID)
	if err != nil {
		return respondError(c, err, studentID, "get ledger")
	}

	return c.JSON(http.StatusOK, ledger)
}

// GetSchedule handles GET /api/v1/students/:studentId/schedule
func (h *LedgerHandler) GetSchedule(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	schedule, err := h.ledgerService.GetSchedule(c.Request().Context(), studentID)
	if err != nil {
		return respondError(c, err, studentID, "get schedule")
	}

	return c.JSON(http.StatusOK, schedule)
}
