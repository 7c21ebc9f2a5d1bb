package postgres

import (
	"context"
	"fmt"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ExtraFeeRepository implements domain.ExtraFeeRepository using PostgreSQL
type ExtraFeeRepository struct {
	pool *pgxpool.Pool
}

// NewExtraFeeRepository creates a new ExtraFeeRepository
func NewExtraFeeRepository(pool *pgxpool.Pool) *ExtraFeeRepository {
	return &ExtraFeeRepository{pool: pool}
}

const getExtraFeesByStudentQuery = `
	SELECT id, student_id, name, amount, paid, created_at, updated_at
	FROM extra_fees
	WHERE student_id = $1
	ORDER BY created_at, name`

const insertExtraFeeQuery = `
	INSERT INTO extra_fees (id, student_id, name, amount, paid)
	VALUES ($1, $2, $3, $4, 0)
	RETURNING id, student_id, name, amount, paid, created_at, updated_at`

const updateExtraFeePaidQuery = `
	UPDATE extra_fees
	SET paid = $3::numeric, updated_at = NOW()
	WHERE id = $1 AND student_id = $2`

// GetByStudentID retrieves the extra fees of a student, oldest first
func (r *ExtraFeeRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.ExtraFee, error) {
	rows, err := r.pool.Query(ctx, getExtraFeesByStudentQuery, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.ExtraFee
	for rows.Next() {
		fee, err := scanExtraFee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, fee)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Create creates a new extra fee
func (r *ExtraFeeRepository) Create(ctx context.Context, fee *domain.ExtraFee) (*domain.ExtraFee, error) {
	amount, err := decimalToPgNumeric(fee.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	id := fee.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	created, err := scanExtraFee(r.pool.QueryRow(ctx, insertExtraFeeQuery, id, fee.StudentID, fee.Name, amount))
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrExtraFeeNameDuplicate
		}
		return nil, err
	}
	return created, nil
}

// UpdatePaidTx writes recomputed paid aggregates within tx
func (r *ExtraFeeRepository) UpdatePaidTx(ctx context.Context, tx any, studentID uuid.UUID, updates []domain.ExtraFeePaidUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	pgxTx, err := asPgxTx(tx)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		paid, err := decimalToPgNumeric(u.Paid)
		if err != nil {
			return fmt.Errorf("invalid paid amount: %w", err)
		}
		batch.Queue(updateExtraFeePaidQuery, u.ID, studentID, paid)
	}

	br := pgxTx.SendBatch(ctx, batch)
	defer br.Close()

	for _, u := range updates {
		tag, err := br.Exec()
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("extra fee %s: %w", u.ID.String(), domain.ErrExtraFeeNotFound)
		}
	}
	return nil
}

func scanExtraFee(row pgx.Row) (*domain.ExtraFee, error) {
	var (
		f         domain.ExtraFee
		amount    pgtype.Numeric
		paid      pgtype.Numeric
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&f.ID, &f.StudentID, &f.Name, &amount, &paid, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	f.Amount = pgNumericToDecimal(amount)
	f.Paid = pgNumericToDecimal(paid)
	f.Due = decimal.Max(f.Amount.Sub(f.Paid), decimal.Zero)
	f.CreatedAt = createdAt.Time
	f.UpdatedAt = updatedAt.Time
	return &f, nil
}
