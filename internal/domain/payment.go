package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentTargetType string

const (
	PaymentTargetTuition  PaymentTargetType = "tuition"
	PaymentTargetExtraFee PaymentTargetType = "extra_fee"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodMobileWallet PaymentMethod = "mobile_wallet"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid returns true for the supported payment methods
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard,
		PaymentMethodMobileWallet, PaymentMethodCheque, PaymentMethodOther:
		return true
	}
	return false
}

type PaymentStatus string

// PaymentStatusCompleted is the only status a recorded payment has
const PaymentStatusCompleted PaymentStatus = "completed"

// PaymentTarget identifies the installment or extra fee a payment settles.
// Legacy records may carry only ExtraFeeName.
type PaymentTarget struct {
	Type              PaymentTargetType `json:"type"`
	InstallmentNumber int32             `json:"installmentNumber,omitempty"`
	ExtraFeeID        *uuid.UUID        `json:"extraFeeId,omitempty"`
	ExtraFeeName      string            `json:"extraFeeName,omitempty"`
}

// TuitionTarget targets installment number n
func TuitionTarget(n int32) PaymentTarget {
	return PaymentTarget{Type: PaymentTargetTuition, InstallmentNumber: n}
}

// ExtraFeeTarget targets the given extra fee
func ExtraFeeTarget(fee *ExtraFee) PaymentTarget {
	id := fee.ID
	return PaymentTarget{Type: PaymentTargetExtraFee, ExtraFeeID: &id, ExtraFeeName: fee.Name}
}

// Key returns a stable identifier used in validation messages and allocation maps
func (t PaymentTarget) Key() string {
	if t.Type == PaymentTargetTuition {
		return fmt.Sprintf("installment:%d", t.InstallmentNumber)
	}
	if t.ExtraFeeID != nil {
		return "extra_fee:" + t.ExtraFeeID.String()
	}
	return "extra_fee_name:" + t.ExtraFeeName
}

// Payment is an immutable record of money received against one installment or one
// extra fee within one transaction.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	StudentID      uuid.UUID       `json:"studentId"`
	TransactionID  uuid.UUID       `json:"transactionId"`
	Target         PaymentTarget   `json:"target"`
	Amount         decimal.Decimal `json:"amount"`
	OriginalDue    decimal.Decimal `json:"originalDue"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Date           time.Time       `json:"date"`
	Method         PaymentMethod   `json:"method"`
	Status         PaymentStatus   `json:"status"`
	Notes          *string         `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type PaymentRepository interface {
	GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*Payment, error)
	GetByTransactionID(ctx context.Context, studentID uuid.UUID, transactionID uuid.UUID) ([]*Payment, error)
	AppendTx(ctx context.Context, tx any, studentID uuid.UUID, payments []*Payment) error
}
