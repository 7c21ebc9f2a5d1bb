package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enrollmentFixture struct {
	enrollment *domain.Enrollment
	payments   *testutil.MockPaymentRepository
	publisher  *testutil.MockEventPublisher
	svc        *EnrollmentService
}

func newEnrollmentFixture(t *testing.T) *enrollmentFixture {
	t.Helper()

	enrollments := testutil.NewMockEnrollmentRepository()
	enrollment := newEnrollment(testutil.Date(2025, time.January, 5), 3, "3000")
	enrollments.AddEnrollment(enrollment)

	f := &enrollmentFixture{
		enrollment: enrollment,
		payments:   testutil.NewMockPaymentRepository(),
		publisher:  &testutil.MockEventPublisher{},
	}
	f.svc = NewEnrollmentService(enrollments, f.payments, testutil.NewMockDiscountRepository(),
		testutil.NewMockExtraFeeRepository(), testutil.FixedClock{T: testutil.Date(2025, time.January, 1)},
		NewStudentLocker(), DefaultScheduleRules())
	f.svc.SetEventPublisher(f.publisher)
	return f
}

func overrides(amounts ...string) []domain.InstallmentOverride {
	list := make([]domain.InstallmentOverride, len(amounts))
	for i, a := range amounts {
		list[i] = domain.InstallmentOverride{Number: int32(i + 1), Amount: dec(a)}
	}
	return list
}

func TestUpdateInstallments_ReplacesAmounts(t *testing.T) {
	f := newEnrollmentFixture(t)

	ledger, err := f.svc.UpdateInstallments(context.Background(), f.enrollment.StudentID, overrides("500", "1000", "1500"))
	require.NoError(t, err)

	require.Len(t, ledger.Installments, 3)
	assert.True(t, ledger.Installments[0].Amount.Equal(dec("500")))
	assert.True(t, ledger.Installments[1].Amount.Equal(dec("1000")))
	assert.True(t, ledger.Installments[2].Amount.Equal(dec("1500")))
	assert.True(t, ledger.Snapshot.TotalTuition.Equal(dec("3000")))

	// Generated due dates are kept for entries that leave them empty
	assert.Equal(t, testutil.Date(2025, time.January, 10), ledger.Installments[0].DueDate)
	assert.Equal(t, []string{"installments.updated"}, f.publisher.Types())
}

func TestUpdateInstallments_FillsMissingNumbers(t *testing.T) {
	f := newEnrollmentFixture(t)

	list := overrides("1000", "1000", "1000")
	for i := range list {
		list[i].Number = 0
	}
	list[0].Name = "  Admission month  "

	ledger, err := f.svc.UpdateInstallments(context.Background(), f.enrollment.StudentID, list)
	require.NoError(t, err)
	assert.Equal(t, int32(3), ledger.Installments[2].Number)
	assert.Equal(t, "Admission month", ledger.Installments[0].Name)
}

func TestUpdateInstallments_Validation(t *testing.T) {
	tests := []struct {
		name    string
		list    []domain.InstallmentOverride
		message string
	}{
		{name: "empty", list: nil, message: "at least one installment is required"},
		{name: "sum mismatch", list: overrides("1000", "1000"), message: "installments sum to 2000 but the total fee is 3000"},
		{name: "negative amount", list: overrides("-500", "2000", "1500"), message: "amount must not be negative"},
		{name: "fractional amount", list: overrides("999.5", "1000.5", "1000"), message: "amount must be a whole amount"},
		{
			name: "gap in numbering",
			list: []domain.InstallmentOverride{
				{Number: 1, Amount: dec("1500")},
				{Number: 3, Amount: dec("1500")},
			},
			message: "expected installment number 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEnrollmentFixture(t)

			_, err := f.svc.UpdateInstallments(context.Background(), f.enrollment.StudentID, tt.list)

			var ve domain.ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.message, ve.Message)
			assert.Empty(t, f.publisher.Types())
		})
	}
}

func TestUpdateInstallments_CannotDropBelowCredit(t *testing.T) {
	f := newEnrollmentFixture(t)
	f.payments.AddPayment(tuitionPayment(f.enrollment.StudentID, 1, "800"))

	_, err := f.svc.UpdateInstallments(context.Background(), f.enrollment.StudentID, overrides("500", "1250", "1250"))

	var ve domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "installment:1", ve.Item)
	assert.Equal(t, "amount is below the 800 already credited", ve.Message)
}

func TestUpdateInstallments_CannotRemoveCreditedInstallment(t *testing.T) {
	f := newEnrollmentFixture(t)
	f.payments.AddPayment(tuitionPayment(f.enrollment.StudentID, 3, "100"))

	_, err := f.svc.UpdateInstallments(context.Background(), f.enrollment.StudentID, overrides("1500", "1500"))

	var ve domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "installment:3", ve.Item)
}

func TestUpdateInstallments_UnknownStudent(t *testing.T) {
	f := newEnrollmentFixture(t)

	_, err := f.svc.UpdateInstallments(context.Background(), uuid.New(), overrides("3000"))
	assert.ErrorIs(t, err, domain.ErrEnrollmentNotFound)
}
