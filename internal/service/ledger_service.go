package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LedgerService serves the computed ledger and schedule of a student
type LedgerService struct {
	enrollmentRepo domain.EnrollmentRepository
	paymentRepo    domain.PaymentRepository
	discountRepo   domain.DiscountRepository
	extraFeeRepo   domain.ExtraFeeRepository
	clock          domain.Clock
	rules          ScheduleRules
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	enrollmentRepo domain.EnrollmentRepository,
	paymentRepo domain.PaymentRepository,
	discountRepo domain.DiscountRepository,
	extraFeeRepo domain.ExtraFeeRepository,
	clock domain.Clock,
	rules ScheduleRules,
) *LedgerService {
	return &LedgerService{
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
		discountRepo:   discountRepo,
		extraFeeRepo:   extraFeeRepo,
		clock:          clock,
		rules:          rules,
	}
}

// GetLedger recomputes the student's ledger as of now
func (s *LedgerService) GetLedger(ctx context.Context, studentID uuid.UUID) (*domain.Ledger, error) {
	state, err := loadStudentState(ctx, studentID, ledgerSources{
		enrollments: s.enrollmentRepo,
		payments:    s.paymentRepo,
		discounts:   s.discountRepo,
		extraFees:   s.extraFeeRepo,
	}, s.rules, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return state.ledger, nil
}

// GetSchedule returns the generated installment schedule without payment state
func (s *LedgerService) GetSchedule(ctx context.Context, studentID uuid.UUID) ([]domain.Installment, error) {
	enrollment, err := s.enrollmentRepo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return GenerateSchedule(enrollment, s.rules)
}

// ledgerSources are the stores a ledger is computed from
type ledgerSources struct {
	enrollments domain.EnrollmentRepository
	payments    domain.PaymentRepository
	discounts   domain.DiscountRepository
	extraFees   domain.ExtraFeeRepository
}

// studentState is everything loaded for one student plus the ledger computed from it
type studentState struct {
	enrollment *domain.Enrollment
	schedule   []domain.Installment
	fees       []*domain.ExtraFee
	payments   []*domain.Payment
	discounts  []*domain.Discount
	ledger     *domain.Ledger
}

func loadStudentState(ctx context.Context, studentID uuid.UUID, src ledgerSources, rules ScheduleRules, asOf time.Time) (*studentState, error) {
	enrollment, err := src.enrollments.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	schedule, err := GenerateSchedule(enrollment, rules)
	if err != nil {
		return nil, err
	}

	payments, err := src.payments.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	discounts, err := src.discounts.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	fees, err := src.extraFees.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	ledger := CalculateLedger(LedgerInput{
		StudentID: studentID,
		Schedule:  schedule,
		ExtraFees: fees,
		Payments:  payments,
		Discounts: discounts,
		AsOf:      asOf,
	})
	ledger.Warnings = append(ledger.Warnings, staleFeePaidWarnings(fees, ledger)...)
	for _, w := range ledger.Warnings {
		log.Warn().
			Str("student_id", studentID.String()).
			Str("code", string(w.Code)).
			Msg(w.Message)
	}

	return &studentState{
		enrollment: enrollment,
		schedule:   schedule,
		fees:       fees,
		payments:   payments,
		discounts:  discounts,
		ledger:     ledger,
	}, nil
}

// staleFeePaidWarnings reports stored extra fee paid amounts that disagree with the
// payment history. The stored value is overwritten by the next payment for the student.
func staleFeePaidWarnings(stored []*domain.ExtraFee, ledger *domain.Ledger) []domain.LedgerWarning {
	var warnings []domain.LedgerWarning
	for _, fee := range stored {
		computed := ledger.FindExtraFee(fee.ID)
		if computed == nil || computed.Paid.Equal(fee.Paid) {
			continue
		}
		id := fee.ID
		warnings = append(warnings, domain.LedgerWarning{
			Code: domain.LedgerWarningStaleFeePaid,
			Message: fmt.Sprintf("extra fee %q records %s paid but payments total %s",
				fee.Name, fee.Paid.String(), computed.Paid.String()),
			ExtraFeeID: &id,
		})
	}
	return warnings
}
