package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentProof links uploaded evidence (bank slip, cheque photo) to a transaction
type PaymentProof struct {
	ID            uuid.UUID `json:"id"`
	StudentID     uuid.UUID `json:"studentId"`
	TransactionID uuid.UUID `json:"transactionId"`
	ThumbnailPath string    `json:"thumbnailPath"`
	DisplayPath   string    `json:"displayPath"`
	OriginalPath  string    `json:"originalPath"`
	CreatedAt     time.Time `json:"createdAt"`
}

type PaymentProofRepository interface {
	Create(ctx context.Context, proof *PaymentProof) (*PaymentProof, error)
	GetByTransactionID(ctx context.Context, studentID uuid.UUID, transactionID uuid.UUID) (*PaymentProof, error)
}
