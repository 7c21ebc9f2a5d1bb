package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the computed paid/due state of every payable item of a student
type Ledger struct {
	StudentID    uuid.UUID       `json:"studentId"`
	AsOf         time.Time       `json:"asOf"`
	Installments []Installment   `json:"installments"`
	ExtraFees    []ExtraFee      `json:"extraFees"`
	Snapshot     LedgerSnapshot  `json:"snapshot"`
	Warnings     []LedgerWarning `json:"warnings,omitempty"`
}

// FindInstallment returns the installment with the given number, or nil
func (l *Ledger) FindInstallment(number int32) *Installment {
	for i := range l.Installments {
		if l.Installments[i].Number == number {
			return &l.Installments[i]
		}
	}
	return nil
}

// FindExtraFee returns the extra fee with the given ID, or nil
func (l *Ledger) FindExtraFee(id uuid.UUID) *ExtraFee {
	for i := range l.ExtraFees {
		if l.ExtraFees[i].ID == id {
			return &l.ExtraFees[i]
		}
	}
	return nil
}

// LedgerSnapshot aggregates a ledger. TotalFee = TotalTuition + TotalExtraFees.
type LedgerSnapshot struct {
	TotalTuition   decimal.Decimal `json:"totalTuition"`
	TotalExtraFees decimal.Decimal `json:"totalExtraFees"`
	TotalFee       decimal.Decimal `json:"totalFee"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	TotalDiscount  decimal.Decimal `json:"totalDiscount"`
	TotalDue       decimal.Decimal `json:"totalDue"`
	PaidCount      int             `json:"paidCount"`
	PartialCount   int             `json:"partialCount"`
	OverdueCount   int             `json:"overdueCount"`
	PendingCount   int             `json:"pendingCount"`
}

type LedgerWarningCode string

const (
	LedgerWarningAmbiguousFeeName LedgerWarningCode = "ambiguous_extra_fee_name"
	LedgerWarningUnknownFee       LedgerWarningCode = "unknown_extra_fee"
	LedgerWarningUnknownInstall   LedgerWarningCode = "unknown_installment"
	LedgerWarningStaleFeePaid     LedgerWarningCode = "stale_extra_fee_paid"
)

// LedgerWarning flags a payment that could not be matched to exactly one item, or a
// stored extra fee paid amount that payment history does not support
type LedgerWarning struct {
	Code       LedgerWarningCode `json:"code"`
	Message    string            `json:"message"`
	PaymentID  *uuid.UUID        `json:"paymentId,omitempty"`
	ExtraFeeID *uuid.UUID        `json:"extraFeeId,omitempty"`
}

// Transactor groups the writes of one payment transaction into a single store update
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx any) error) error
}

// Clock supplies "today" to the ledger calculations
type Clock interface {
	Now() time.Time
}
