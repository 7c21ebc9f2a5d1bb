package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnexpectedTx is returned by transactional mock writes called with a foreign tx
var ErrUnexpectedTx = errors.New("unexpected transaction type")

// FixedClock is a domain.Clock that always returns T
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time
func (c FixedClock) Now() time.Time {
	return c.T
}

// Date returns a UTC midnight time for tests
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// MockTx buffers the writes of one transaction until commit
type MockTx struct {
	ops []func()
}

// Defer queues a write to run on commit
func (tx *MockTx) Defer(op func()) {
	tx.ops = append(tx.ops, op)
}

// MockTransactor is a mock implementation of domain.Transactor. Writes queued on the
// MockTx become visible only when fn succeeds and CommitErr is nil.
type MockTransactor struct {
	BeginErr  error
	CommitErr error
	Commits   int
	Rollbacks int
	mu        sync.Mutex
}

// NewMockTransactor creates a new MockTransactor
func NewMockTransactor() *MockTransactor {
	return &MockTransactor{}
}

// WithinTx runs fn in a buffered transaction
func (m *MockTransactor) WithinTx(ctx context.Context, fn func(tx any) error) error {
	if m.BeginErr != nil {
		return m.BeginErr
	}

	tx := &MockTx{}
	if err := fn(tx); err != nil {
		m.mu.Lock()
		m.Rollbacks++
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CommitErr != nil {
		m.Rollbacks++
		return m.CommitErr
	}
	for _, op := range tx.ops {
		op()
	}
	m.Commits++
	return nil
}

func asMockTx(tx any) (*MockTx, error) {
	mtx, ok := tx.(*MockTx)
	if !ok {
		return nil, ErrUnexpectedTx
	}
	return mtx, nil
}

// MockEnrollmentRepository is a mock implementation of domain.EnrollmentRepository
type MockEnrollmentRepository struct {
	Enrollments map[uuid.UUID]*domain.Enrollment
	UpdateErr   error
	mu          sync.Mutex
}

// NewMockEnrollmentRepository creates a new MockEnrollmentRepository
func NewMockEnrollmentRepository() *MockEnrollmentRepository {
	return &MockEnrollmentRepository{
		Enrollments: make(map[uuid.UUID]*domain.Enrollment),
	}
}

// AddEnrollment adds an enrollment to the mock repository (helper for tests)
func (m *MockEnrollmentRepository) AddEnrollment(e *domain.Enrollment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Enrollments[e.StudentID] = e
}

// GetByStudentID retrieves a copy of a student's enrollment
func (m *MockEnrollmentRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) (*domain.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Enrollments[studentID]
	if !ok {
		return nil, domain.ErrEnrollmentNotFound
	}
	cp := *e
	cp.Installments = append([]domain.InstallmentOverride(nil), e.Installments...)
	return &cp, nil
}

// UpdateInstallments replaces the installment overrides
func (m *MockEnrollmentRepository) UpdateInstallments(ctx context.Context, studentID uuid.UUID, installments []domain.InstallmentOverride) (*domain.Enrollment, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	m.mu.Lock()
	e, ok := m.Enrollments[studentID]
	if !ok {
		m.mu.Unlock()
		return nil, domain.ErrEnrollmentNotFound
	}
	e.Installments = append([]domain.InstallmentOverride(nil), installments...)
	m.mu.Unlock()
	return m.GetByStudentID(ctx, studentID)
}

// MockPaymentRepository is a mock implementation of domain.PaymentRepository
type MockPaymentRepository struct {
	Payments  []*domain.Payment
	AppendErr error
	GetErr    error
	mu        sync.Mutex
}

// NewMockPaymentRepository creates a new MockPaymentRepository
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{}
}

// AddPayment adds a payment directly (helper for tests)
func (m *MockPaymentRepository) AddPayment(p *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Payments = append(m.Payments, p)
}

// GetByStudentID retrieves a student's payments in insertion order
func (m *MockPaymentRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.Payment, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Payment, 0)
	for _, p := range m.Payments {
		if p.StudentID == studentID {
			result = append(result, p)
		}
	}
	return result, nil
}

// GetByTransactionID retrieves the payments of one transaction
func (m *MockPaymentRepository) GetByTransactionID(ctx context.Context, studentID uuid.UUID, transactionID uuid.UUID) ([]*domain.Payment, error) {
	all, err := m.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	result := make([]*domain.Payment, 0)
	for _, p := range all {
		if p.TransactionID == transactionID {
			result = append(result, p)
		}
	}
	return result, nil
}

// AppendTx queues the payments for commit
func (m *MockPaymentRepository) AppendTx(ctx context.Context, tx any, studentID uuid.UUID, payments []*domain.Payment) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	mtx, err := asMockTx(tx)
	if err != nil {
		return err
	}
	batch := append([]*domain.Payment(nil), payments...)
	mtx.Defer(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.Payments = append(m.Payments, batch...)
	})
	return nil
}

// Count returns the number of stored payments
func (m *MockPaymentRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payments)
}

// MockDiscountRepository is a mock implementation of domain.DiscountRepository
type MockDiscountRepository struct {
	Discounts []*domain.Discount
	CreateErr error
	mu        sync.Mutex
}

// NewMockDiscountRepository creates a new MockDiscountRepository
func NewMockDiscountRepository() *MockDiscountRepository {
	return &MockDiscountRepository{}
}

// AddDiscount adds a discount directly (helper for tests)
func (m *MockDiscountRepository) AddDiscount(d *domain.Discount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Discounts = append(m.Discounts, d)
}

// GetByStudentID retrieves a student's discounts
func (m *MockDiscountRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Discount, 0)
	for _, d := range m.Discounts {
		if d.StudentID == studentID {
			result = append(result, d)
		}
	}
	return result, nil
}

// CreateTx queues the discount for commit
func (m *MockDiscountRepository) CreateTx(ctx context.Context, tx any, discount *domain.Discount) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	mtx, err := asMockTx(tx)
	if err != nil {
		return err
	}
	mtx.Defer(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.Discounts = append(m.Discounts, discount)
	})
	return nil
}

// Count returns the number of stored discounts
func (m *MockDiscountRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Discounts)
}

// MockExtraFeeRepository is a mock implementation of domain.ExtraFeeRepository
type MockExtraFeeRepository struct {
	Fees      map[uuid.UUID]*domain.ExtraFee
	CreateErr error
	UpdateErr error
	mu        sync.Mutex
}

// NewMockExtraFeeRepository creates a new MockExtraFeeRepository
func NewMockExtraFeeRepository() *MockExtraFeeRepository {
	return &MockExtraFeeRepository{
		Fees: make(map[uuid.UUID]*domain.ExtraFee),
	}
}

// AddFee adds an extra fee directly (helper for tests)
func (m *MockExtraFeeRepository) AddFee(fee *domain.ExtraFee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fee.ID == uuid.Nil {
		fee.ID = uuid.New()
	}
	m.Fees[fee.ID] = fee
}

// GetByStudentID retrieves copies of a student's fees ordered by creation time
func (m *MockExtraFeeRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.ExtraFee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.ExtraFee, 0)
	for _, f := range m.Fees {
		if f.StudentID == studentID {
			cp := *f
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Name < result[j].Name
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Create stores a new fee
func (m *MockExtraFeeRepository) Create(ctx context.Context, fee *domain.ExtraFee) (*domain.ExtraFee, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *fee
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.Fees[cp.ID] = &cp
	out := cp
	return &out, nil
}

// UpdatePaidTx queues the paid aggregates for commit
func (m *MockExtraFeeRepository) UpdatePaidTx(ctx context.Context, tx any, studentID uuid.UUID, updates []domain.ExtraFeePaidUpdate) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	mtx, err := asMockTx(tx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	for _, u := range updates {
		if f, ok := m.Fees[u.ID]; !ok || f.StudentID != studentID {
			m.mu.Unlock()
			return fmt.Errorf("extra fee %s: %w", u.ID, domain.ErrExtraFeeNotFound)
		}
	}
	m.mu.Unlock()
	batch := append([]domain.ExtraFeePaidUpdate(nil), updates...)
	mtx.Defer(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, u := range batch {
			m.Fees[u.ID].Paid = u.Paid
		}
	})
	return nil
}

// PaidOf returns the stored paid aggregate of a fee
func (m *MockExtraFeeRepository) PaidOf(id uuid.UUID) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.Fees[id]; ok {
		return f.Paid
	}
	return decimal.Zero
}

// MockPaymentProofRepository is a mock implementation of domain.PaymentProofRepository
type MockPaymentProofRepository struct {
	Proofs    map[uuid.UUID]*domain.PaymentProof // keyed by transaction ID
	CreateErr error
	mu        sync.Mutex
}

// NewMockPaymentProofRepository creates a new MockPaymentProofRepository
func NewMockPaymentProofRepository() *MockPaymentProofRepository {
	return &MockPaymentProofRepository{
		Proofs: make(map[uuid.UUID]*domain.PaymentProof),
	}
}

// Create stores a proof, replacing any earlier proof of the transaction
func (m *MockPaymentProofRepository) Create(ctx context.Context, proof *domain.PaymentProof) (*domain.PaymentProof, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *proof
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.CreatedAt = time.Now()
	m.Proofs[cp.TransactionID] = &cp
	return &cp, nil
}

// GetByTransactionID retrieves the proof of a transaction
func (m *MockPaymentProofRepository) GetByTransactionID(ctx context.Context, studentID uuid.UUID, transactionID uuid.UUID) (*domain.PaymentProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Proofs[transactionID]
	if !ok || p.StudentID != studentID {
		return nil, domain.ErrProofNotFound
	}
	return p, nil
}

// MockProofStore is an in-memory object store
type MockProofStore struct {
	Objects   map[string][]byte
	Deleted   []string
	UploadErr error
	// FailOnUpload makes the nth upload (1-based) fail with UploadErr
	FailOnUpload int
	uploads      int
	mu           sync.Mutex
}

// NewMockProofStore creates a new MockProofStore
func NewMockProofStore() *MockProofStore {
	return &MockProofStore{
		Objects: make(map[string][]byte),
	}
}

// Upload stores the object
func (m *MockProofStore) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	if m.UploadErr != nil && (m.FailOnUpload == 0 || m.FailOnUpload == m.uploads) {
		return "", m.UploadErr
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.Objects[objectPath] = buf
	return objectPath, nil
}

// Delete removes the object
func (m *MockProofStore) Delete(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, objectPath)
	m.Deleted = append(m.Deleted, objectPath)
	return nil
}

// GeneratePresignedURL returns a fake signed URL
func (m *MockProofStore) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/%s?expires=%d", objectPath, int(expiry.Seconds())), nil
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	Events []PublishedEvent
	mu     sync.Mutex
}

// PublishedEvent is one recorded Publish call
type PublishedEvent struct {
	StudentID uuid.UUID
	Type      string
	Payload   interface{}
}

// Publish records the event
func (m *MockEventPublisher) Publish(studentID uuid.UUID, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{StudentID: studentID, Type: event.Type, Payload: event.Payload})
}

// Types returns the recorded event types in order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}
