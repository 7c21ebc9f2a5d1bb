package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/dafibh/academia/academia-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProofHandler handles payment proof uploads
type ProofHandler struct {
	proofService *service.ProofService
}

// NewProofHandler creates a new ProofHandler
func NewProofHandler(proofService *service.ProofService) *ProofHandler {
	return &ProofHandler{proofService: proofService}
}

// UploadProof handles POST /api/v1/students/:studentId/transactions/:transactionId/proof
func (h *ProofHandler) UploadProof(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	transactionID, err := uuid.Parse(c.Param("transactionId"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	// Nil storage would fail on the first upload
	if h.proofService == nil || !h.proofService.IsEnabled() {
		return NewServiceUnavailableError(c, "Proof uploads are disabled (storage not configured)")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	// Read one byte past the limit so oversized files are rejected without buffering them
	data, err := io.ReadAll(io.LimitReader(src, service.MaxImageSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	view, err := h.proofService.UploadProof(c.Request().Context(), studentID, transactionID, data, file.Filename)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageTooLarge):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "File too large. Maximum size is 5MB"},
			})
		case errors.Is(err, service.ErrInvalidFormat):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Invalid format. Supported: JPEG, PNG"},
			})
		case errors.Is(err, service.ErrImageTooSmall):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Image too small. Minimum 50x50 pixels"},
			})
		case errors.Is(err, service.ErrInvalidImageData):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Invalid image data"},
			})
		}
		return respondError(c, err, studentID, "upload payment proof")
	}

	return c.JSON(http.StatusCreated, view)
}

// GetProof handles GET /api/v1/students/:studentId/transactions/:transactionId/proof
func (h *ProofHandler) GetProof(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return NewInvalidStudentIDError(c)
	}

	transactionID, err := uuid.Parse(c.Param("transactionId"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	if h.proofService == nil || !h.proofService.IsEnabled() {
		return NewServiceUnavailableError(c, "Payment proofs are unavailable (storage not configured)")
	}

	view, err := h.proofService.GetProof(c.Request().Context(), studentID, transactionID)
	if err != nil {
		return respondError(c, err, studentID, "get payment proof")
	}

	return c.JSON(http.StatusOK, view)
}
