package service

import (
	"testing"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassifyOverdue(t *testing.T) {
	due := testutil.Date(2025, time.January, 10)

	tests := []struct {
		name       string
		today      time.Time
		overdue    bool
		monthsLate int
	}{
		{"two months later", testutil.Date(2025, time.March, 15), true, 2},
		{"same month after due day", testutil.Date(2025, time.January, 28), false, 0},
		{"next month before due day", testutil.Date(2025, time.February, 1), true, 1},
		{"before due month", testutil.Date(2024, time.December, 20), false, 0},
		{"across a year", testutil.Date(2026, time.January, 1), true, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyOverdue(due, tt.today)
			assert.Equal(t, tt.overdue, got.Overdue)
			assert.Equal(t, tt.monthsLate, got.MonthsOverdue)
		})
	}
}

func threeMonthSchedule(t *testing.T) []domain.Installment {
	t.Helper()
	enrollment := newEnrollment(testutil.Date(2025, time.January, 5), 3, "3000")
	schedule, err := GenerateSchedule(enrollment, DefaultScheduleRules())
	require.NoError(t, err)
	return schedule
}

func tuitionPayment(studentID uuid.UUID, n int32, amount string) *domain.Payment {
	return &domain.Payment{
		ID:            uuid.New(),
		StudentID:     studentID,
		TransactionID: uuid.New(),
		Target:        domain.TuitionTarget(n),
		Amount:        dec(amount),
		Method:        domain.PaymentMethodCash,
		Status:        domain.PaymentStatusCompleted,
	}
}

func TestCalculateLedger_StatusPrecedence(t *testing.T) {
	studentID := uuid.New()
	schedule := threeMonthSchedule(t) // due Jan 10, Feb 10, Mar 10 of 2025

	ledger := CalculateLedger(LedgerInput{
		StudentID: studentID,
		Schedule:  schedule,
		Payments: []*domain.Payment{
			tuitionPayment(studentID, 1, "1000"),
			tuitionPayment(studentID, 2, "400"),
		},
		AsOf: testutil.Date(2025, time.March, 1),
	})

	require.Len(t, ledger.Installments, 3)

	first := ledger.Installments[0]
	assert.Equal(t, domain.InstallmentStatusPaid, first.Status)
	assert.True(t, first.Due.IsZero())

	second := ledger.Installments[1]
	assert.Equal(t, domain.InstallmentStatusPartial, second.Status)
	assert.True(t, second.Due.Equal(dec("600")))
	assert.Equal(t, 1, second.MonthsOverdue)

	third := ledger.Installments[2]
	assert.Equal(t, domain.InstallmentStatusPending, third.Status)

	overdueLedger := CalculateLedger(LedgerInput{
		StudentID: studentID,
		Schedule:  schedule,
		AsOf:      testutil.Date(2025, time.May, 2),
	})
	assert.Equal(t, domain.InstallmentStatusOverdue, overdueLedger.Installments[0].Status)
	assert.Equal(t, 4, overdueLedger.Installments[0].MonthsOverdue)
	assert.Equal(t, 3, overdueLedger.Snapshot.OverdueCount)
}

func TestCalculateLedger_DiscountCreditsInstallment(t *testing.T) {
	studentID := uuid.New()
	schedule := threeMonthSchedule(t)

	ledger := CalculateLedger(LedgerInput{
		StudentID: studentID,
		Schedule:  schedule,
		Payments:  []*domain.Payment{tuitionPayment(studentID, 1, "750")},
		Discounts: []*domain.Discount{{
			StudentID: studentID,
			Kind:      domain.DiscountKindFixed,
			Amount:    dec("1250"),
			Allocations: []domain.DiscountAllocation{
				{Target: domain.TuitionTarget(1), Amount: dec("250")},
				{Target: domain.TuitionTarget(2), Amount: dec("1000")},
			},
		}},
		AsOf: testutil.Date(2025, time.January, 1),
	})

	// Installment 2 is settled by discount alone and has no payment record
	assert.Equal(t, domain.InstallmentStatusPaid, ledger.Installments[0].Status)
	assert.Equal(t, domain.InstallmentStatusPaid, ledger.Installments[1].Status)
	assert.True(t, ledger.Installments[1].Paid.IsZero())
	assert.True(t, ledger.Installments[1].Discount.Equal(dec("1000")))

	snap := ledger.Snapshot
	assert.True(t, snap.TotalPaid.Equal(dec("750")))
	assert.True(t, snap.TotalDiscount.Equal(dec("1250")))
	assert.True(t, snap.TotalDue.Equal(dec("1000")))
	assert.Equal(t, 2, snap.PaidCount)
	assert.Equal(t, 1, snap.PendingCount)
}

func TestCalculateLedger_OverpaymentFloorsDueAtZero(t *testing.T) {
	studentID := uuid.New()

	ledger := CalculateLedger(LedgerInput{
		StudentID: studentID,
		Schedule:  threeMonthSchedule(t),
		Payments:  []*domain.Payment{tuitionPayment(studentID, 1, "1500")},
		AsOf:      testutil.Date(2025, time.January, 1),
	})

	assert.True(t, ledger.Installments[0].Due.IsZero())
	assert.Equal(t, domain.InstallmentStatusPaid, ledger.Installments[0].Status)
}

func TestCalculateLedger_ExtraFeeMatching(t *testing.T) {
	studentID := uuid.New()
	exam := &domain.ExtraFee{ID: uuid.New(), StudentID: studentID, Name: "Exam fee", Amount: dec("500")}
	material := &domain.ExtraFee{ID: uuid.New(), StudentID: studentID, Name: "Material fee", Amount: dec("300")}
	materialDup := &domain.ExtraFee{ID: uuid.New(), StudentID: studentID, Name: "Material fee", Amount: dec("200")}

	byID := &domain.Payment{ID: uuid.New(), StudentID: studentID, Target: domain.ExtraFeeTarget(exam), Amount: dec("200")}
	byName := &domain.Payment{ID: uuid.New(), StudentID: studentID, Target: domain.PaymentTarget{Type: domain.PaymentTargetExtraFee, ExtraFeeName: "Exam fee"}, Amount: dec("100")}
	ambiguous := &domain.Payment{ID: uuid.New(), StudentID: studentID, Target: domain.PaymentTarget{Type: domain.PaymentTargetExtraFee, ExtraFeeName: "Material fee"}, Amount: dec("300")}
	unknownID := uuid.New()
	unknown := &domain.Payment{ID: uuid.New(), StudentID: studentID, Target: domain.PaymentTarget{Type: domain.PaymentTargetExtraFee, ExtraFeeID: &unknownID}, Amount: dec("50")}

	ledger := CalculateLedger(LedgerInput{
		StudentID: studentID,
		ExtraFees: []*domain.ExtraFee{exam, material, materialDup},
		Payments:  []*domain.Payment{byID, byName, ambiguous, unknown},
		AsOf:      testutil.Date(2025, time.January, 1),
	})

	examFee := ledger.FindExtraFee(exam.ID)
	require.NotNil(t, examFee)
	assert.True(t, examFee.Paid.Equal(dec("300")))
	assert.True(t, examFee.Due.Equal(dec("200")))

	assert.True(t, ledger.FindExtraFee(material.ID).Paid.IsZero())
	assert.True(t, ledger.FindExtraFee(materialDup.ID).Paid.IsZero())

	require.Len(t, ledger.Warnings, 2)
	assert.Equal(t, domain.LedgerWarningAmbiguousFeeName, ledger.Warnings[0].Code)
	assert.Equal(t, ambiguous.ID, *ledger.Warnings[0].PaymentID)
	assert.Equal(t, domain.LedgerWarningUnknownFee, ledger.Warnings[1].Code)

	assert.True(t, ledger.Snapshot.TotalExtraFees.Equal(dec("1000")))
	assert.True(t, ledger.Snapshot.TotalPaid.Equal(dec("300")))
}

func TestCalculateLedger_UnknownInstallmentWarns(t *testing.T) {
	studentID := uuid.New()

	ledger := CalculateLedger(LedgerInput{
		StudentID: studentID,
		Schedule:  threeMonthSchedule(t),
		Payments:  []*domain.Payment{tuitionPayment(studentID, 7, "100")},
		AsOf:      testutil.Date(2025, time.January, 1),
	})

	require.Len(t, ledger.Warnings, 1)
	assert.Equal(t, domain.LedgerWarningUnknownInstall, ledger.Warnings[0].Code)
	assert.True(t, ledger.Snapshot.TotalPaid.IsZero())
}

func TestCalculateLedger_SnapshotTotals(t *testing.T) {
	studentID := uuid.New()
	fee := &domain.ExtraFee{ID: uuid.New(), StudentID: studentID, Name: "Exam fee", Amount: dec("500")}

	ledger := CalculateLedger(LedgerInput{
		StudentID: studentID,
		Schedule:  threeMonthSchedule(t),
		ExtraFees: []*domain.ExtraFee{fee},
		Payments: []*domain.Payment{
			tuitionPayment(studentID, 1, "1000"),
			{ID: uuid.New(), StudentID: studentID, Target: domain.ExtraFeeTarget(fee), Amount: dec("500")},
		},
		AsOf: testutil.Date(2025, time.January, 1),
	})

	snap := ledger.Snapshot
	assert.True(t, snap.TotalTuition.Equal(dec("3000")))
	assert.True(t, snap.TotalExtraFees.Equal(dec("500")))
	assert.True(t, snap.TotalFee.Equal(dec("3500")))
	assert.True(t, snap.TotalPaid.Equal(dec("1500")))
	assert.True(t, snap.TotalDue.Equal(dec("2000")))
	// paid + discount + due reconciles to the fee when nothing is overpaid
	assert.True(t, snap.TotalPaid.Add(snap.TotalDiscount).Add(snap.TotalDue).Equal(snap.TotalFee))
}

func TestCalculateLedger_DoesNotMutateInput(t *testing.T) {
	studentID := uuid.New()
	schedule := threeMonthSchedule(t)
	fee := &domain.ExtraFee{ID: uuid.New(), StudentID: studentID, Name: "Exam fee", Amount: dec("500"), Paid: dec("999")}

	input := LedgerInput{
		StudentID: studentID,
		Schedule:  schedule,
		ExtraFees: []*domain.ExtraFee{fee},
		Payments:  []*domain.Payment{tuitionPayment(studentID, 1, "1000")},
		AsOf:      testutil.Date(2025, time.January, 1),
	}

	first := CalculateLedger(input)
	second := CalculateLedger(input)

	assert.Equal(t, first, second)
	assert.True(t, schedule[0].Paid.IsZero())
	assert.True(t, fee.Paid.Equal(dec("999")), "stored aggregate must not be touched")
	assert.True(t, first.FindExtraFee(fee.ID).Paid.IsZero(), "paid is recomputed from history")
}
