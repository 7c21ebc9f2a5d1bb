package handler

import (
	"github.com/dafibh/academia/academia-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Ledger     *LedgerHandler
	Payment    *PaymentHandler
	ExtraFee   *ExtraFeeHandler
	Enrollment *EnrollmentHandler
	Proof      *ProofHandler
	WebSocket  *WebSocketHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, h Handlers, rateLimiter *middleware.RateLimiter) {
	// WebSocket route (outside the API group, no rate limiting)
	if h.WebSocket != nil {
		e.GET("/ws", h.WebSocket.HandleWS)
	}

	// API version 1
	api := e.Group("/api/v1")

	students := api.Group("/students/:studentId")
	if rateLimiter != nil {
		students.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	// Ledger routes
	students.GET("/ledger", h.Ledger.GetLedger)
	students.GET("/schedule", h.Ledger.GetSchedule)

	// Installment plan routes
	students.PUT("/installments", h.Enrollment.UpdateInstallments)

	// Extra fee routes
	students.GET("/extra-fees", h.ExtraFee.ListExtraFees)
	students.POST("/extra-fees", h.ExtraFee.CreateExtraFee)

	// Payment routes
	students.GET("/payments", h.Payment.GetPaymentHistory)
	students.POST("/payments/preview", h.Payment.PreviewPayment)
	students.POST("/payments", h.Payment.ProcessPayment)
	students.GET("/transactions/:transactionId", h.Payment.GetTransaction)

	// Payment proof routes
	students.POST("/transactions/:transactionId/proof", h.Proof.UploadProof)
	students.GET("/transactions/:transactionId/proof", h.Proof.GetProof)
}
