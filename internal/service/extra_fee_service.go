package service

import (
	"context"
	"strings"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ExtraFeeService handles extra fee business logic
type ExtraFeeService struct {
	enrollmentRepo domain.EnrollmentRepository
	paymentRepo    domain.PaymentRepository
	discountRepo   domain.DiscountRepository
	extraFeeRepo   domain.ExtraFeeRepository
	clock          domain.Clock
	rules          ScheduleRules
	eventPublisher websocket.EventPublisher
}

// NewExtraFeeService creates a new ExtraFeeService
func NewExtraFeeService(
	enrollmentRepo domain.EnrollmentRepository,
	paymentRepo domain.PaymentRepository,
	discountRepo domain.DiscountRepository,
	extraFeeRepo domain.ExtraFeeRepository,
	clock domain.Clock,
	rules ScheduleRules,
) *ExtraFeeService {
	return &ExtraFeeService{
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
		discountRepo:   discountRepo,
		extraFeeRepo:   extraFeeRepo,
		clock:          clock,
		rules:          rules,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ExtraFeeService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *ExtraFeeService) publishEvent(studentID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(studentID, event)
	}
}

// CreateExtraFeeInput contains input for creating an extra fee
type CreateExtraFeeInput struct {
	Name   string
	Amount decimal.Decimal
}

// CreateExtraFee attaches a new ad-hoc charge to a student. Names are unique per student
// so that legacy name-only payment records keep resolving to a single fee.
func (s *ExtraFeeService) CreateExtraFee(ctx context.Context, studentID uuid.UUID, input CreateExtraFeeInput) (*domain.ExtraFee, error) {
	if _, err := s.enrollmentRepo.GetByStudentID(ctx, studentID); err != nil {
		return nil, err
	}

	fee := &domain.ExtraFee{
		StudentID: studentID,
		Name:      strings.TrimSpace(input.Name),
		Amount:    input.Amount,
		Paid:      decimal.Zero,
		Due:       input.Amount,
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	if !FitsPrecision(fee.Amount, s.rules.Precision) {
		return nil, domain.ValidationError{Field: "amount", Message: decimalPlacesMessage(s.rules.Precision)}
	}

	existing, err := s.extraFeeRepo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	for _, f := range existing {
		if strings.EqualFold(f.Name, fee.Name) {
			return nil, domain.ErrExtraFeeNameDuplicate
		}
	}

	created, err := s.extraFeeRepo.Create(ctx, fee)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("student_id", studentID.String()).
		Str("extra_fee_id", created.ID.String()).
		Str("amount", created.Amount.String()).
		Msg("Extra fee created")

	s.publishEvent(studentID, websocket.ExtraFeeCreated(created))

	return created, nil
}

// ListExtraFees returns the student's extra fees with paid and due recomputed from history
func (s *ExtraFeeService) ListExtraFees(ctx context.Context, studentID uuid.UUID) ([]domain.ExtraFee, error) {
	state, err := loadStudentState(ctx, studentID, ledgerSources{
		enrollments: s.enrollmentRepo,
		payments:    s.paymentRepo,
		discounts:   s.discountRepo,
		extraFees:   s.extraFeeRepo,
	}, s.rules, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return state.ledger.ExtraFees, nil
}
