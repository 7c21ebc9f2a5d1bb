package service

import (
	"fmt"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/util"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverdueResult is the lateness of a due date in whole calendar months
type OverdueResult struct {
	Overdue       bool `json:"overdue"`
	MonthsOverdue int  `json:"monthsOverdue"`
}

// ClassifyOverdue compares due date and today by calendar month only. An installment due
// on the 28th is overdue as soon as the month rolls over.
func ClassifyOverdue(dueDate, today time.Time) OverdueResult {
	months := util.MonthsBetween(dueDate, today)
	if months <= 0 {
		return OverdueResult{}
	}
	return OverdueResult{Overdue: true, MonthsOverdue: months}
}

// LedgerInput is everything the ledger calculator folds together
type LedgerInput struct {
	StudentID uuid.UUID
	Schedule  []domain.Installment
	ExtraFees []*domain.ExtraFee
	Payments  []*domain.Payment
	Discounts []*domain.Discount
	AsOf      time.Time
}

// CalculateLedger computes per-item paid/due state and the aggregate snapshot.
// It is a pure function of its input: the schedule and fees are copied, never mutated.
func CalculateLedger(input LedgerInput) *domain.Ledger {
	ledger := &domain.Ledger{
		StudentID:    input.StudentID,
		AsOf:         input.AsOf,
		Installments: make([]domain.Installment, len(input.Schedule)),
		ExtraFees:    make([]domain.ExtraFee, len(input.ExtraFees)),
	}
	copy(ledger.Installments, input.Schedule)
	for i, fee := range input.ExtraFees {
		ledger.ExtraFees[i] = *fee
	}

	m := newTargetMatcher(ledger)

	installmentPaid := make(map[int32]decimal.Decimal)
	installmentDiscount := make(map[int32]decimal.Decimal)
	feePaid := make(map[uuid.UUID]decimal.Decimal)
	feeDiscount := make(map[uuid.UUID]decimal.Decimal)

	for _, p := range input.Payments {
		id := p.ID
		switch p.Target.Type {
		case domain.PaymentTargetTuition:
			if !m.hasInstallment(p.Target.InstallmentNumber) {
				ledger.Warnings = append(ledger.Warnings, domain.LedgerWarning{
					Code:      domain.LedgerWarningUnknownInstall,
					Message:   fmt.Sprintf("payment references installment %d which is not in the schedule", p.Target.InstallmentNumber),
					PaymentID: &id,
				})
				continue
			}
			n := p.Target.InstallmentNumber
			installmentPaid[n] = installmentPaid[n].Add(p.Amount)
		case domain.PaymentTargetExtraFee:
			feeID, warning := m.resolveFee(p.Target)
			if warning != nil {
				warning.PaymentID = &id
				ledger.Warnings = append(ledger.Warnings, *warning)
				continue
			}
			feePaid[feeID] = feePaid[feeID].Add(p.Amount)
		}
	}

	for _, d := range input.Discounts {
		for _, a := range d.Allocations {
			switch a.Target.Type {
			case domain.PaymentTargetTuition:
				if m.hasInstallment(a.Target.InstallmentNumber) {
					n := a.Target.InstallmentNumber
					installmentDiscount[n] = installmentDiscount[n].Add(a.Amount)
				}
			case domain.PaymentTargetExtraFee:
				if feeID, warning := m.resolveFee(a.Target); warning == nil {
					feeDiscount[feeID] = feeDiscount[feeID].Add(a.Amount)
				}
			}
		}
	}

	snap := domain.LedgerSnapshot{
		TotalTuition:   decimal.Zero,
		TotalExtraFees: decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalDiscount:  decimal.Zero,
		TotalDue:       decimal.Zero,
	}

	for i := range ledger.Installments {
		inst := &ledger.Installments[i]
		inst.Paid = installmentPaid[inst.Number]
		inst.Discount = installmentDiscount[inst.Number]
		inst.Due = dueOf(inst.Amount, inst.Credited())
		inst.Status, inst.MonthsOverdue = installmentStatus(inst, input.AsOf)

		snap.TotalTuition = snap.TotalTuition.Add(inst.Amount)
		snap.TotalPaid = snap.TotalPaid.Add(inst.Paid)
		snap.TotalDiscount = snap.TotalDiscount.Add(inst.Discount)
		snap.TotalDue = snap.TotalDue.Add(inst.Due)

		switch inst.Status {
		case domain.InstallmentStatusPaid:
			snap.PaidCount++
		case domain.InstallmentStatusPartial:
			snap.PartialCount++
		case domain.InstallmentStatusOverdue:
			snap.OverdueCount++
		default:
			snap.PendingCount++
		}
	}

	for i := range ledger.ExtraFees {
		fee := &ledger.ExtraFees[i]
		discount := feeDiscount[fee.ID]
		fee.Paid = feePaid[fee.ID]
		fee.Due = dueOf(fee.Amount, fee.Paid.Add(discount))

		snap.TotalExtraFees = snap.TotalExtraFees.Add(fee.Amount)
		snap.TotalPaid = snap.TotalPaid.Add(fee.Paid)
		snap.TotalDiscount = snap.TotalDiscount.Add(discount)
		snap.TotalDue = snap.TotalDue.Add(fee.Due)
	}

	snap.TotalFee = snap.TotalTuition.Add(snap.TotalExtraFees)
	ledger.Snapshot = snap

	return ledger
}

// installmentStatus applies the precedence Paid → Partial → Overdue → Pending
func installmentStatus(inst *domain.Installment, asOf time.Time) (domain.InstallmentStatus, int) {
	overdue := ClassifyOverdue(inst.DueDate, asOf)
	if inst.Due.IsZero() {
		return domain.InstallmentStatusPaid, 0
	}
	if inst.Credited().IsPositive() {
		return domain.InstallmentStatusPartial, overdue.MonthsOverdue
	}
	if overdue.Overdue {
		return domain.InstallmentStatusOverdue, overdue.MonthsOverdue
	}
	return domain.InstallmentStatusPending, 0
}

// dueOf returns max(0, amount - credited)
func dueOf(amount, credited decimal.Decimal) decimal.Decimal {
	due := amount.Sub(credited)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// targetMatcher resolves payment targets against the items of one ledger
type targetMatcher struct {
	installments map[int32]bool
	feeIDs       map[uuid.UUID]bool
	feesByName   map[string][]uuid.UUID
}

func newTargetMatcher(ledger *domain.Ledger) *targetMatcher {
	m := &targetMatcher{
		installments: make(map[int32]bool, len(ledger.Installments)),
		feeIDs:       make(map[uuid.UUID]bool, len(ledger.ExtraFees)),
		feesByName:   make(map[string][]uuid.UUID),
	}
	for _, inst := range ledger.Installments {
		m.installments[inst.Number] = true
	}
	for _, fee := range ledger.ExtraFees {
		m.feeIDs[fee.ID] = true
		m.feesByName[fee.Name] = append(m.feesByName[fee.Name], fee.ID)
	}
	return m
}

func (m *targetMatcher) hasInstallment(n int32) bool {
	return m.installments[n]
}

// resolveFee matches by ID first. Name matching is only a fallback for records without an
// ID and only when exactly one fee carries the name; otherwise a warning is returned.
func (m *targetMatcher) resolveFee(target domain.PaymentTarget) (uuid.UUID, *domain.LedgerWarning) {
	if target.ExtraFeeID != nil {
		if m.feeIDs[*target.ExtraFeeID] {
			return *target.ExtraFeeID, nil
		}
		return uuid.Nil, &domain.LedgerWarning{
			Code:    domain.LedgerWarningUnknownFee,
			Message: fmt.Sprintf("payment references extra fee %s which does not exist", target.ExtraFeeID.String()),
		}
	}

	matches := m.feesByName[target.ExtraFeeName]
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return uuid.Nil, &domain.LedgerWarning{
			Code:    domain.LedgerWarningUnknownFee,
			Message: fmt.Sprintf("payment references extra fee %q which does not exist", target.ExtraFeeName),
		}
	default:
		return uuid.Nil, &domain.LedgerWarning{
			Code:    domain.LedgerWarningAmbiguousFeeName,
			Message: fmt.Sprintf("payment matches %d extra fees named %q and was not applied", len(matches), target.ExtraFeeName),
		}
	}
}
