package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrExtraFeeAmountInvalid = errors.New("extra fee amount must be positive")
	ErrExtraFeeNameDuplicate = errors.New("an extra fee with this name already exists")
)

// ExtraFee is an ad-hoc charge attached to a student (exam fee, material fee).
// Paid is the stored aggregate written after every transaction; the ledger calculator
// recomputes it from payment history on read.
type ExtraFee struct {
	ID        uuid.UUID       `json:"id"`
	StudentID uuid.UUID       `json:"studentId"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Paid      decimal.Decimal `json:"paid"`
	Due       decimal.Decimal `json:"due"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (f *ExtraFee) Validate() error {
	if f.Name == "" {
		return ErrNameRequired
	}
	if len(f.Name) > MaxExtraFeeNameLength {
		return ErrNameTooLong
	}
	if f.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrExtraFeeAmountInvalid
	}
	return nil
}

// ExtraFeePaidUpdate carries a recomputed paid aggregate for one fee
type ExtraFeePaidUpdate struct {
	ID   uuid.UUID
	Paid decimal.Decimal
}

type ExtraFeeRepository interface {
	GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*ExtraFee, error)
	Create(ctx context.Context, fee *ExtraFee) (*ExtraFee, error)
	UpdatePaidTx(ctx context.Context, tx any, studentID uuid.UUID, updates []ExtraFeePaidUpdate) error
}
