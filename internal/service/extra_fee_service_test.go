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

func newExtraFeeFixture(t *testing.T) (*ExtraFeeService, *domain.Enrollment, *testutil.MockExtraFeeRepository, *testutil.MockPaymentRepository, *testutil.MockEventPublisher) {
	t.Helper()

	enrollments := testutil.NewMockEnrollmentRepository()
	enrollment := newEnrollment(testutil.Date(2025, time.January, 5), 2, "2000")
	enrollments.AddEnrollment(enrollment)

	fees := testutil.NewMockExtraFeeRepository()
	payments := testutil.NewMockPaymentRepository()
	publisher := &testutil.MockEventPublisher{}

	svc := NewExtraFeeService(enrollments, payments, testutil.NewMockDiscountRepository(), fees,
		testutil.FixedClock{T: testutil.Date(2025, time.January, 1)}, DefaultScheduleRules())
	svc.SetEventPublisher(publisher)
	return svc, enrollment, fees, payments, publisher
}

func TestCreateExtraFee(t *testing.T) {
	svc, enrollment, _, _, publisher := newExtraFeeFixture(t)

	fee, err := svc.CreateExtraFee(context.Background(), enrollment.StudentID, CreateExtraFeeInput{
		Name:   "  Exam fee ",
		Amount: dec("500"),
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, fee.ID)
	assert.Equal(t, "Exam fee", fee.Name)
	assert.True(t, fee.Paid.IsZero())
	assert.True(t, fee.Due.Equal(dec("500")))
	assert.Equal(t, []string{"extra_fee.created"}, publisher.Types())
}

func TestCreateExtraFee_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateExtraFeeInput
		wantErr error
	}{
		{name: "blank name", input: CreateExtraFeeInput{Name: "   ", Amount: dec("100")}, wantErr: domain.ErrNameRequired},
		{name: "zero amount", input: CreateExtraFeeInput{Name: "Books", Amount: dec("0")}, wantErr: domain.ErrExtraFeeAmountInvalid},
		{name: "duplicate name ignoring case", input: CreateExtraFeeInput{Name: "EXAM FEE", Amount: dec("100")}, wantErr: domain.ErrExtraFeeNameDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, enrollment, fees, _, publisher := newExtraFeeFixture(t)
			fees.AddFee(&domain.ExtraFee{StudentID: enrollment.StudentID, Name: "Exam fee", Amount: dec("500")})

			_, err := svc.CreateExtraFee(context.Background(), enrollment.StudentID, tt.input)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, publisher.Types())
		})
	}
}

func TestCreateExtraFee_FractionalAmount(t *testing.T) {
	svc, enrollment, fees, _, _ := newExtraFeeFixture(t)

	_, err := svc.CreateExtraFee(context.Background(), enrollment.StudentID, CreateExtraFeeInput{Name: "Books", Amount: dec("12.5")})

	var ve domain.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.Equal(t, "amount", ve.Field)
	assert.Empty(t, fees.Fees)
}

func TestCreateExtraFee_UnknownStudent(t *testing.T) {
	svc, _, _, _, _ := newExtraFeeFixture(t)

	_, err := svc.CreateExtraFee(context.Background(), uuid.New(), CreateExtraFeeInput{Name: "Books", Amount: dec("100")})
	assert.ErrorIs(t, err, domain.ErrEnrollmentNotFound)
}

func TestListExtraFees_RecomputesFromHistory(t *testing.T) {
	svc, enrollment, fees, payments, _ := newExtraFeeFixture(t)

	fee := &domain.ExtraFee{ID: uuid.New(), StudentID: enrollment.StudentID, Name: "Exam fee", Amount: dec("500")}
	fees.AddFee(fee)
	p := tuitionPayment(enrollment.StudentID, 0, "200")
	p.Target = domain.ExtraFeeTarget(fee)
	payments.AddPayment(p)

	list, err := svc.ListExtraFees(context.Background(), enrollment.StudentID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Paid.Equal(dec("200")))
	assert.True(t, list[0].Due.Equal(dec("300")))
}
