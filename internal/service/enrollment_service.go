package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// EnrollmentService handles administrator edits of a student's installment plan
type EnrollmentService struct {
	enrollmentRepo domain.EnrollmentRepository
	paymentRepo    domain.PaymentRepository
	discountRepo   domain.DiscountRepository
	extraFeeRepo   domain.ExtraFeeRepository
	clock          domain.Clock
	locker         *StudentLocker
	rules          ScheduleRules
	eventPublisher websocket.EventPublisher
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(
	enrollmentRepo domain.EnrollmentRepository,
	paymentRepo domain.PaymentRepository,
	discountRepo domain.DiscountRepository,
	extraFeeRepo domain.ExtraFeeRepository,
	clock domain.Clock,
	locker *StudentLocker,
	rules ScheduleRules,
) *EnrollmentService {
	return &EnrollmentService{
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
		discountRepo:   discountRepo,
		extraFeeRepo:   extraFeeRepo,
		clock:          clock,
		locker:         locker,
		rules:          rules,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *EnrollmentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *EnrollmentService) publishEvent(studentID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(studentID, event)
	}
}

// UpdateInstallments replaces the student's installment plan with an explicit list.
// The list must number installments 1..N, sum to the total fee, and keep every
// installment at or above what has already been credited to it.
func (s *EnrollmentService) UpdateInstallments(ctx context.Context, studentID uuid.UUID, overrides []domain.InstallmentOverride) (*domain.Ledger, error) {
	unlock := s.locker.Lock(studentID)
	defer unlock()

	src := ledgerSources{
		enrollments: s.enrollmentRepo,
		payments:    s.paymentRepo,
		discounts:   s.discountRepo,
		extraFees:   s.extraFeeRepo,
	}
	state, err := loadStudentState(ctx, studentID, src, s.rules, s.clock.Now())
	if err != nil {
		return nil, err
	}

	normalized, err := validateOverrides(state.enrollment, overrides, s.rules.Precision)
	if err != nil {
		return nil, err
	}

	// An edit must not leave credit on an installment that can no longer hold it
	byNumber := make(map[int32]decimal.Decimal, len(normalized))
	for _, o := range normalized {
		byNumber[o.Number] = o.Amount
	}
	for _, inst := range state.ledger.Installments {
		credited := inst.Credited()
		if !credited.IsPositive() {
			continue
		}
		amount, ok := byNumber[inst.Number]
		if !ok || amount.LessThan(credited) {
			return nil, domain.ValidationError{
				Field:   "installments",
				Item:    domain.TuitionTarget(inst.Number).Key(),
				Message: fmt.Sprintf("amount is below the %s already credited", credited.String()),
			}
		}
	}

	if _, err := s.enrollmentRepo.UpdateInstallments(ctx, studentID, normalized); err != nil {
		return nil, err
	}

	updated, err := loadStudentState(ctx, studentID, src, s.rules, s.clock.Now())
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("student_id", studentID.String()).
		Int("installments", len(normalized)).
		Msg("Installment plan updated")

	s.publishEvent(studentID, websocket.InstallmentsUpdated(updated.ledger.Installments))

	return updated.ledger, nil
}

// validateOverrides trims names, fills missing numbers from position and checks the
// structural rules of an installment list
func validateOverrides(enrollment *domain.Enrollment, overrides []domain.InstallmentOverride, precision int32) ([]domain.InstallmentOverride, error) {
	if len(overrides) == 0 {
		return nil, domain.ValidationError{Field: "installments", Message: "at least one installment is required"}
	}

	normalized := make([]domain.InstallmentOverride, len(overrides))
	sum := decimal.Zero
	for i, o := range overrides {
		expected := int32(i + 1)
		if o.Number == 0 {
			o.Number = expected
		}
		key := domain.TuitionTarget(o.Number).Key()
		if o.Number != expected {
			return nil, domain.ValidationError{Field: "installments", Item: key, Message: fmt.Sprintf("expected installment number %d", expected)}
		}
		if o.Amount.IsNegative() {
			return nil, domain.ValidationError{Field: "installments", Item: key, Message: "amount must not be negative"}
		}
		if !FitsPrecision(o.Amount, precision) {
			return nil, domain.ValidationError{Field: "installments", Item: key, Message: "amount " + decimalPlacesMessage(precision)}
		}
		o.Name = strings.TrimSpace(o.Name)
		o.MonthLabel = strings.TrimSpace(o.MonthLabel)
		if len(o.Name) > domain.MaxExtraFeeNameLength {
			return nil, domain.ValidationError{Field: "installments", Item: key, Message: "name is too long"}
		}
		sum = sum.Add(o.Amount)
		normalized[i] = o
	}

	if !sum.Equal(enrollment.TotalFee) {
		return nil, domain.ValidationError{
			Field:   "installments",
			Message: fmt.Sprintf("installments sum to %s but the total fee is %s", sum.String(), enrollment.TotalFee.String()),
		}
	}

	return normalized, nil
}
