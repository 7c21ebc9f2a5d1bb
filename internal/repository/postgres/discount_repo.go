package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DiscountRepository implements domain.DiscountRepository using PostgreSQL.
// Allocations are stored with the discount as a jsonb array.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository creates a new DiscountRepository
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

const getDiscountsByStudentQuery = `
	SELECT id, student_id, transaction_id, kind, value, amount, reason, allocations, created_at
	FROM discounts
	WHERE student_id = $1
	ORDER BY created_at, id`

const insertDiscountQuery = `
	INSERT INTO discounts (id, student_id, transaction_id, kind, value, amount, reason, allocations, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)`

// GetByStudentID retrieves every discount of a student
func (r *DiscountRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountsByStudentQuery, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Discount
	for rows.Next() {
		var (
			d         domain.Discount
			kind      string
			value     pgtype.Numeric
			amount    pgtype.Numeric
			reason    pgtype.Text
			raw       []byte
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&d.ID, &d.StudentID, &d.TransactionID, &kind, &value, &amount, &reason, &raw, &createdAt); err != nil {
			return nil, err
		}
		d.Kind = domain.DiscountKind(kind)
		d.Value = pgNumericToDecimal(value)
		d.Amount = pgNumericToDecimal(amount)
		d.Reason = pgTextToStringPtr(reason)
		d.CreatedAt = createdAt.Time
		if err := json.Unmarshal(raw, &d.Allocations); err != nil {
			return nil, fmt.Errorf("failed to decode allocations of discount %s: %w", d.ID.String(), err)
		}
		result = append(result, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateTx inserts a discount record within tx
func (r *DiscountRepository) CreateTx(ctx context.Context, tx any, discount *domain.Discount) error {
	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return err
	}

	value, err := decimalToPgNumeric(discount.Value)
	if err != nil {
		return fmt.Errorf("invalid discount value: %w", err)
	}
	amount, err := decimalToPgNumeric(discount.Amount)
	if err != nil {
		return fmt.Errorf("invalid discount amount: %w", err)
	}
	allocations, err := json.Marshal(discount.Allocations)
	if err != nil {
		return fmt.Errorf("failed to encode allocations: %w", err)
	}

	_, err = pgxTx.Exec(ctx, insertDiscountQuery,
		discount.ID, discount.StudentID, discount.TransactionID,
		string(discount.Kind), value, amount, stringPtrToPgText(discount.Reason),
		allocations, discount.CreatedAt,
	)
	return err
}
