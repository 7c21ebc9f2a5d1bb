package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/util"
	"github.com/dafibh/academia/academia-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DiscountInput is the discount requested for one transaction
type DiscountInput struct {
	Kind   domain.DiscountKind
	Value  decimal.Decimal
	Reason *string
}

// ProcessPaymentInput is one proposed payment transaction
type ProcessPaymentInput struct {
	StudentID    uuid.UUID
	Installments []int32
	ExtraFeeIDs  []uuid.UUID
	Amount       decimal.Decimal
	Discount     *DiscountInput
	Method       domain.PaymentMethod
	Date         *time.Time
	Notes        *string
}

// ItemBreakdown shows how one selected item is settled by a transaction
type ItemBreakdown struct {
	Target   domain.PaymentTarget `json:"target"`
	Label    string               `json:"label"`
	Due      decimal.Decimal      `json:"due"`
	Discount decimal.Decimal      `json:"discount"`
	Payable  decimal.Decimal      `json:"payable"`
	Paid     decimal.Decimal      `json:"paid"`
	DueAfter decimal.Decimal      `json:"dueAfter"`
}

// PaymentResult is the outcome of a processed (or previewed) transaction
type PaymentResult struct {
	TransactionID  uuid.UUID         `json:"transactionId"`
	SelectionTotal decimal.Decimal   `json:"selectionTotal"`
	DiscountTotal  decimal.Decimal   `json:"discountTotal"`
	NetPayable     decimal.Decimal   `json:"netPayable"`
	AmountReceived decimal.Decimal   `json:"amountReceived"`
	Items          []ItemBreakdown   `json:"items"`
	Payments       []*domain.Payment `json:"payments"`
	Discount       *domain.Discount  `json:"discount,omitempty"`
	Ledger         *domain.Ledger    `json:"ledger"`
}

// Transaction groups the payments and discount recorded under one transaction ID
type Transaction struct {
	TransactionID uuid.UUID            `json:"transactionId"`
	StudentID     uuid.UUID            `json:"studentId"`
	Date          time.Time            `json:"date"`
	Method        domain.PaymentMethod `json:"method"`
	Total         decimal.Decimal      `json:"total"`
	Payments      []*domain.Payment    `json:"payments"`
	Discount      *domain.Discount     `json:"discount,omitempty"`
}

// PaymentService is the payment transaction processor. Transactions for one student are
// serialized by the locker; the writes of one transaction are committed together.
type PaymentService struct {
	enrollmentRepo domain.EnrollmentRepository
	paymentRepo    domain.PaymentRepository
	discountRepo   domain.DiscountRepository
	extraFeeRepo   domain.ExtraFeeRepository
	transactor     domain.Transactor
	clock          domain.Clock
	locker         *StudentLocker
	rules          ScheduleRules
	eventPublisher websocket.EventPublisher
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	enrollmentRepo domain.EnrollmentRepository,
	paymentRepo domain.PaymentRepository,
	discountRepo domain.DiscountRepository,
	extraFeeRepo domain.ExtraFeeRepository,
	transactor domain.Transactor,
	clock domain.Clock,
	locker *StudentLocker,
	rules ScheduleRules,
) *PaymentService {
	return &PaymentService{
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
		discountRepo:   discountRepo,
		extraFeeRepo:   extraFeeRepo,
		transactor:     transactor,
		clock:          clock,
		locker:         locker,
		rules:          rules,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *PaymentService) publishEvent(studentID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(studentID, event)
	}
}

// plannedTransaction is a validated, allocated and distributed transaction not yet persisted
type plannedTransaction struct {
	result   *PaymentResult
	payments []*domain.Payment
	discount *domain.Discount
}

// ProcessPayment validates, allocates, records and reconciles one payment transaction.
// On any error nothing is persisted.
func (s *PaymentService) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*PaymentResult, error) {
	unlock := s.locker.Lock(input.StudentID)
	defer unlock()

	state, err := s.loadState(ctx, input.StudentID)
	if err != nil {
		return nil, err
	}

	plan, err := s.plan(state, input)
	if err != nil {
		return nil, err
	}

	// Stored extra fee aggregates are written from the reconciled ledger, never incremented
	ledger := s.reconcile(input.StudentID, state, plan)
	feeUpdates := changedFeeAggregates(state.fees, ledger)

	err = s.transactor.WithinTx(ctx, func(tx any) error {
		if len(plan.payments) > 0 {
			if err := s.paymentRepo.AppendTx(ctx, tx, input.StudentID, plan.payments); err != nil {
				return &domain.PersistenceError{Op: "append payments", Err: err}
			}
		}
		if plan.discount != nil {
			if err := s.discountRepo.CreateTx(ctx, tx, plan.discount); err != nil {
				return &domain.PersistenceError{Op: "record discount", Err: err}
			}
		}
		if len(feeUpdates) > 0 {
			if err := s.extraFeeRepo.UpdatePaidTx(ctx, tx, input.StudentID, feeUpdates); err != nil {
				return &domain.PersistenceError{Op: "update extra fees", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		if !domain.IsPersistenceError(err) {
			err = &domain.PersistenceError{Op: "commit transaction", Err: err}
		}
		log.Error().
			Err(err).
			Str("student_id", input.StudentID.String()).
			Str("transaction_id", plan.result.TransactionID.String()).
			Msg("Payment transaction rolled back")
		return nil, err
	}

	plan.result.Ledger = ledger
	plan.result.Items = itemsAfter(plan.result.Items, ledger)

	log.Info().
		Str("student_id", input.StudentID.String()).
		Str("transaction_id", plan.result.TransactionID.String()).
		Str("amount", plan.result.AmountReceived.String()).
		Str("discount", plan.result.DiscountTotal.String()).
		Int("payments", len(plan.payments)).
		Msg("Payment transaction recorded")

	s.publishEvent(input.StudentID, websocket.PaymentRecorded(plan.result))

	return plan.result, nil
}

// PreviewPayment runs validation, allocation and distribution without persisting anything
func (s *PaymentService) PreviewPayment(ctx context.Context, input ProcessPaymentInput) (*PaymentResult, error) {
	state, err := s.loadState(ctx, input.StudentID)
	if err != nil {
		return nil, err
	}

	plan, err := s.plan(state, input)
	if err != nil {
		return nil, err
	}

	ledger := s.reconcile(input.StudentID, state, plan)
	plan.result.Ledger = ledger
	plan.result.Items = itemsAfter(plan.result.Items, ledger)

	return plan.result, nil
}

// GetPaymentHistory returns every payment of a student, newest first
func (s *PaymentService) GetPaymentHistory(ctx context.Context, studentID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.enrollmentRepo.GetByStudentID(ctx, studentID); err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	sorted := make([]*domain.Payment, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].Date.After(sorted[j].Date)
	})
	return sorted, nil
}

// GetTransaction returns the payments and discount recorded under one transaction ID
func (s *PaymentService) GetTransaction(ctx context.Context, studentID, transactionID uuid.UUID) (*Transaction, error) {
	payments, err := s.paymentRepo.GetByTransactionID(ctx, studentID, transactionID)
	if err != nil {
		return nil, err
	}

	discounts, err := s.discountRepo.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	var discount *domain.Discount
	for _, d := range discounts {
		if d.TransactionID == transactionID {
			discount = d
			break
		}
	}

	// A fully discounted transaction has no payments, only the discount record
	if len(payments) == 0 && discount == nil {
		return nil, domain.ErrTransactionNotFound
	}

	txn := &Transaction{
		TransactionID: transactionID,
		StudentID:     studentID,
		Total:         decimal.Zero,
		Payments:      payments,
		Discount:      discount,
	}
	for _, p := range payments {
		txn.Total = txn.Total.Add(p.Amount)
	}
	if len(payments) > 0 {
		txn.Date = payments[0].Date
		txn.Method = payments[0].Method
	} else {
		txn.Date = discount.CreatedAt
	}
	return txn, nil
}

func (s *PaymentService) loadState(ctx context.Context, studentID uuid.UUID) (*studentState, error) {
	return loadStudentState(ctx, studentID, ledgerSources{
		enrollments: s.enrollmentRepo,
		payments:    s.paymentRepo,
		discounts:   s.discountRepo,
		extraFees:   s.extraFeeRepo,
	}, s.rules, s.clock.Now())
}

// plan validates the input against the current ledger, allocates the discount and
// distributes the received amount. It has no side effects.
func (s *PaymentService) plan(state *studentState, input ProcessPaymentInput) (*plannedTransaction, error) {
	items, err := selectItems(state.ledger, input)
	if err != nil {
		return nil, err
	}

	if !input.Method.IsValid() {
		return nil, domain.ValidationError{Field: "method", Message: fmt.Sprintf("unsupported payment method %q", input.Method)}
	}
	if input.Amount.IsNegative() {
		return nil, domain.ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	if !FitsPrecision(input.Amount, s.rules.Precision) {
		return nil, domain.ValidationError{Field: "amount", Message: decimalPlacesMessage(s.rules.Precision)}
	}

	kind, value := domain.DiscountKindFixed, decimal.Zero
	var reason *string
	if input.Discount != nil {
		kind, value, reason = input.Discount.Kind, input.Discount.Value, input.Discount.Reason
		if reason != nil && len(*reason) > domain.MaxReasonLength {
			return nil, domain.ValidationError{Field: "discount.reason", Message: "reason is too long"}
		}
		if kind == domain.DiscountKindFixed && !FitsPrecision(value, s.rules.Precision) {
			return nil, domain.ValidationError{Field: "discount.value", Message: decimalPlacesMessage(s.rules.Precision)}
		}
	}

	allocation, err := AllocateDiscount(items, kind, value, s.rules.Precision)
	if err != nil {
		return nil, err
	}

	netPayable := allocation.SelectionTotal.Sub(allocation.Total)
	switch {
	case netPayable.IsZero() && !input.Amount.IsZero():
		return nil, domain.ValidationError{Field: "amount", Message: "discount covers the selection, amount must be zero"}
	case netPayable.IsPositive() && !input.Amount.IsPositive():
		return nil, domain.ValidationError{Field: "amount", Message: "amount must be positive"}
	case input.Amount.GreaterThan(netPayable):
		return nil, domain.ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("amount %s exceeds net payable %s", input.Amount.String(), netPayable.String()),
		}
	}

	now := s.clock.Now()
	date := util.DateOnly(now)
	if input.Date != nil {
		date = util.DateOnly(*input.Date)
	}

	transactionID := uuid.New()
	result := &PaymentResult{
		TransactionID:  transactionID,
		SelectionTotal: allocation.SelectionTotal,
		DiscountTotal:  allocation.Total,
		NetPayable:     netPayable,
		AmountReceived: input.Amount,
		Items:          make([]ItemBreakdown, len(items)),
		Payments:       []*domain.Payment{},
	}

	// Distribute the received amount in selection order
	remaining := input.Amount
	for i, item := range items {
		share := allocation.AmountFor(i)
		payable := item.Due.Sub(share)
		paid := decimal.Min(payable, remaining)
		remaining = remaining.Sub(paid)

		result.Items[i] = ItemBreakdown{
			Target:   item.Target,
			Label:    item.Label,
			Due:      item.Due,
			Discount: share,
			Payable:  payable,
			Paid:     paid,
			DueAfter: payable.Sub(paid),
		}

		if !paid.IsPositive() {
			continue
		}
		result.Payments = append(result.Payments, &domain.Payment{
			ID:             uuid.New(),
			StudentID:      input.StudentID,
			TransactionID:  transactionID,
			Target:         item.Target,
			Amount:         paid,
			OriginalDue:    item.Due,
			DiscountAmount: share,
			Date:           date,
			Method:         input.Method,
			Status:         domain.PaymentStatusCompleted,
			Notes:          input.Notes,
			CreatedAt:      now,
		})
	}

	var discount *domain.Discount
	if allocation.Total.IsPositive() {
		discount = &domain.Discount{
			ID:            uuid.New(),
			StudentID:     input.StudentID,
			TransactionID: transactionID,
			Kind:          kind,
			Value:         value,
			Amount:        allocation.Total,
			Reason:        reason,
			Allocations:   allocation.Allocations,
			CreatedAt:     now,
		}
		result.Discount = discount
	}

	log.Debug().
		Str("student_id", input.StudentID.String()).
		Str("selection_total", allocation.SelectionTotal.String()).
		Str("discount_total", allocation.Total.String()).
		Str("net_payable", netPayable.String()).
		Int("items", len(items)).
		Msg("Payment transaction planned")

	return &plannedTransaction{result: result, payments: result.Payments, discount: discount}, nil
}

// selectItems resolves the selection against the ledger in request order: installments
// first, then extra fees
func selectItems(ledger *domain.Ledger, input ProcessPaymentInput) ([]PayableItem, error) {
	if len(input.Installments) == 0 && len(input.ExtraFeeIDs) == 0 {
		return nil, domain.ValidationError{Field: "items", Message: "no items selected"}
	}

	items := make([]PayableItem, 0, len(input.Installments)+len(input.ExtraFeeIDs))

	seenInstallments := make(map[int32]bool, len(input.Installments))
	for _, n := range input.Installments {
		target := domain.TuitionTarget(n)
		if seenInstallments[n] {
			return nil, domain.ValidationError{Field: "installments", Item: target.Key(), Message: "selected more than once"}
		}
		seenInstallments[n] = true

		inst := ledger.FindInstallment(n)
		if inst == nil {
			return nil, domain.ValidationError{Field: "installments", Item: target.Key(), Message: "installment does not exist"}
		}
		if !inst.Due.IsPositive() {
			return nil, domain.ValidationError{Field: "installments", Item: target.Key(), Message: "installment is already paid"}
		}
		items = append(items, PayableItem{Target: target, Label: inst.Name, Due: inst.Due})
	}

	seenFees := make(map[uuid.UUID]bool, len(input.ExtraFeeIDs))
	for _, id := range input.ExtraFeeIDs {
		key := "extra_fee:" + id.String()
		if seenFees[id] {
			return nil, domain.ValidationError{Field: "extraFeeIds", Item: key, Message: "selected more than once"}
		}
		seenFees[id] = true

		fee := ledger.FindExtraFee(id)
		if fee == nil {
			return nil, domain.ValidationError{Field: "extraFeeIds", Item: key, Message: "extra fee does not exist"}
		}
		if !fee.Due.IsPositive() {
			return nil, domain.ValidationError{Field: "extraFeeIds", Item: key, Message: "extra fee is already paid"}
		}
		items = append(items, PayableItem{Target: domain.ExtraFeeTarget(fee), Label: fee.Name, Due: fee.Due})
	}

	return items, nil
}

// changedFeeAggregates returns the stored extra fee paid amounts that differ from the
// recomputed ledger
func changedFeeAggregates(stored []*domain.ExtraFee, ledger *domain.Ledger) []domain.ExtraFeePaidUpdate {
	var updates []domain.ExtraFeePaidUpdate
	for _, fee := range stored {
		computed := ledger.FindExtraFee(fee.ID)
		if computed == nil || computed.Paid.Equal(fee.Paid) {
			continue
		}
		updates = append(updates, domain.ExtraFeePaidUpdate{ID: fee.ID, Paid: computed.Paid})
	}
	return updates
}

// itemsAfter fills DueAfter from the reconciled ledger
func itemsAfter(items []ItemBreakdown, ledger *domain.Ledger) []ItemBreakdown {
	for i := range items {
		t := items[i].Target
		switch t.Type {
		case domain.PaymentTargetTuition:
			if inst := ledger.FindInstallment(t.InstallmentNumber); inst != nil {
				items[i].DueAfter = inst.Due
			}
		case domain.PaymentTargetExtraFee:
			if t.ExtraFeeID != nil {
				if fee := ledger.FindExtraFee(*t.ExtraFeeID); fee != nil {
					items[i].DueAfter = fee.Due
				}
			}
		}
	}
	return items
}

// reconcile recomputes the ledger from history plus the planned records
func (s *PaymentService) reconcile(studentID uuid.UUID, state *studentState, plan *plannedTransaction) *domain.Ledger {
	payments := make([]*domain.Payment, 0, len(state.payments)+len(plan.payments))
	payments = append(payments, state.payments...)
	payments = append(payments, plan.payments...)

	discounts := make([]*domain.Discount, 0, len(state.discounts)+1)
	discounts = append(discounts, state.discounts...)
	if plan.discount != nil {
		discounts = append(discounts, plan.discount)
	}

	return CalculateLedger(LedgerInput{
		StudentID: studentID,
		Schedule:  state.schedule,
		ExtraFees: state.fees,
		Payments:  payments,
		Discounts: discounts,
		AsOf:      s.clock.Now(),
	})
}

// IsRetryable reports whether a ProcessPayment error may be resubmitted unchanged
func IsRetryable(err error) bool {
	var pe *domain.PersistenceError
	return errors.As(err, &pe) && pe.Retryable()
}

func decimalPlacesMessage(precision int32) string {
	if precision == 0 {
		return "must be a whole amount"
	}
	return fmt.Sprintf("must have at most %d decimal places", precision)
}
