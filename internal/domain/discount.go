package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountKind string

const (
	DiscountKindFixed      DiscountKind = "fixed"
	DiscountKindPercentage DiscountKind = "percentage"
)

// IsValid returns true for the supported discount kinds
func (k DiscountKind) IsValid() bool {
	return k == DiscountKindFixed || k == DiscountKindPercentage
}

// Discount is a one-time adjustment applied within a payment transaction. Allocations
// record the share of every selected item, including items that ended with no payment.
type Discount struct {
	ID            uuid.UUID            `json:"id"`
	StudentID     uuid.UUID            `json:"studentId"`
	TransactionID uuid.UUID            `json:"transactionId"`
	Kind          DiscountKind         `json:"kind"`
	Value         decimal.Decimal      `json:"value"`
	Amount        decimal.Decimal      `json:"amount"`
	Reason        *string              `json:"reason,omitempty"`
	Allocations   []DiscountAllocation `json:"allocations"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// DiscountAllocation is the part of a discount applied to one payable item
type DiscountAllocation struct {
	Target PaymentTarget   `json:"target"`
	Amount decimal.Decimal `json:"amount"`
}

type DiscountRepository interface {
	GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*Discount, error)
	CreateTx(ctx context.Context, tx any, discount *Discount) error
}
