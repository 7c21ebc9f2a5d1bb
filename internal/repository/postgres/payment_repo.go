package postgres

import (
	"context"
	"fmt"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository implements domain.PaymentRepository using PostgreSQL.
// Payments are append-only; there is no update or delete.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `
	id, student_id, transaction_id,
	target_type, installment_number, extra_fee_id, extra_fee_name,
	amount, original_due, discount_amount,
	payment_date, method, status, notes, created_at`

const getPaymentsByStudentQuery = `
	SELECT` + paymentColumns + `
	FROM payments
	WHERE student_id = $1
	ORDER BY created_at, id`

const getPaymentsByTransactionQuery = `
	SELECT` + paymentColumns + `
	FROM payments
	WHERE student_id = $1 AND transaction_id = $2
	ORDER BY created_at, id`

const insertPaymentQuery = `
	INSERT INTO payments (` + paymentColumns + `)
	VALUES (
		$1::uuid, $2::uuid, $3::uuid,
		$4::text, $5::int, $6::uuid, $7::text,
		$8::numeric, $9::numeric, $10::numeric,
		$11::date, $12::text, $13::text, $14::text, $15::timestamptz
	)`

// GetByStudentID retrieves every payment of a student in recording order
func (r *PaymentRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(ctx, getPaymentsByStudentQuery, studentID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// GetByTransactionID retrieves the payments recorded under one transaction
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, studentID uuid.UUID, transactionID uuid.UUID) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(ctx, getPaymentsByTransactionQuery, studentID, transactionID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// AppendTx inserts the payments of one transaction as a single batch within tx
func (r *PaymentRepository) AppendTx(ctx context.Context, tx any, studentID uuid.UUID, payments []*domain.Payment) error {
	if len(payments) == 0 {
		return nil
	}

	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, p := range payments {
		if p.StudentID != studentID {
			return fmt.Errorf("payment %s belongs to another student", p.ID.String())
		}
		amount, err := decimalToPgNumeric(p.Amount)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		originalDue, err := decimalToPgNumeric(p.OriginalDue)
		if err != nil {
			return fmt.Errorf("invalid original due: %w", err)
		}
		discount, err := decimalToPgNumeric(p.DiscountAmount)
		if err != nil {
			return fmt.Errorf("invalid discount amount: %w", err)
		}

		installment, feeName := targetColumns(p.Target)
		batch.Queue(
			insertPaymentQuery,
			p.ID, p.StudentID, p.TransactionID,
			string(p.Target.Type), installment, p.Target.ExtraFeeID, feeName,
			amount, originalDue, discount,
			timeToPgDate(p.Date), string(p.Method), string(p.Status), stringPtrToPgText(p.Notes), p.CreatedAt,
		)
	}

	br := pgxTx.SendBatch(ctx, batch)
	defer br.Close()

	for range payments {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// targetColumns splits a payment target into its nullable columns
func targetColumns(t domain.PaymentTarget) (pgtype.Int4, pgtype.Text) {
	var installment pgtype.Int4
	var feeName pgtype.Text
	switch t.Type {
	case domain.PaymentTargetTuition:
		installment = pgtype.Int4{Int32: t.InstallmentNumber, Valid: true}
	case domain.PaymentTargetExtraFee:
		if t.ExtraFeeName != "" {
			feeName = pgtype.Text{String: t.ExtraFeeName, Valid: true}
		}
	}
	return installment, feeName
}

func scanTarget(targetType string, installment pgtype.Int4, feeID *uuid.UUID, feeName pgtype.Text) domain.PaymentTarget {
	target := domain.PaymentTarget{
		Type:       domain.PaymentTargetType(targetType),
		ExtraFeeID: feeID,
	}
	if installment.Valid {
		target.InstallmentNumber = installment.Int32
	}
	if feeName.Valid {
		target.ExtraFeeName = feeName.String
	}
	return target
}

func collectPayments(rows pgx.Rows) ([]*domain.Payment, error) {
	defer rows.Close()

	var result []*domain.Payment
	for rows.Next() {
		var (
			p           domain.Payment
			targetType  string
			installment pgtype.Int4
			feeID       *uuid.UUID
			feeName     pgtype.Text
			amount      pgtype.Numeric
			originalDue pgtype.Numeric
			discount    pgtype.Numeric
			date        pgtype.Date
			method      string
			status      string
			notes       pgtype.Text
			createdAt   pgtype.Timestamptz
		)
		if err := rows.Scan(
			&p.ID, &p.StudentID, &p.TransactionID,
			&targetType, &installment, &feeID, &feeName,
			&amount, &originalDue, &discount,
			&date, &method, &status, &notes, &createdAt,
		); err != nil {
			return nil, err
		}

		p.Target = scanTarget(targetType, installment, feeID, feeName)
		p.Amount = pgNumericToDecimal(amount)
		p.OriginalDue = pgNumericToDecimal(originalDue)
		p.DiscountAmount = pgNumericToDecimal(discount)
		p.Date = pgDateToTime(date)
		p.Method = domain.PaymentMethod(method)
		p.Status = domain.PaymentStatus(status)
		p.Notes = pgTextToStringPtr(notes)
		p.CreatedAt = createdAt.Time
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
