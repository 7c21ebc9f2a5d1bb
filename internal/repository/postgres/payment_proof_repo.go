package postgres

import (
	"context"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentProofRepository implements domain.PaymentProofRepository using PostgreSQL
type PaymentProofRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentProofRepository creates a new PaymentProofRepository
func NewPaymentProofRepository(pool *pgxpool.Pool) *PaymentProofRepository {
	return &PaymentProofRepository{pool: pool}
}

// A transaction holds at most one proof; a new upload replaces the old record
const upsertPaymentProofQuery = `
	INSERT INTO payment_proofs (id, student_id, transaction_id, thumbnail_path, display_path, original_path)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (transaction_id) DO UPDATE SET
		id = EXCLUDED.id,
		thumbnail_path = EXCLUDED.thumbnail_path,
		display_path = EXCLUDED.display_path,
		original_path = EXCLUDED.original_path,
		created_at = NOW()
	RETURNING id, student_id, transaction_id, thumbnail_path, display_path, original_path, created_at`

const getPaymentProofQuery = `
	SELECT id, student_id, transaction_id, thumbnail_path, display_path, original_path, created_at
	FROM payment_proofs
	WHERE student_id = $1 AND transaction_id = $2`

// Create records a proof for a transaction
func (r *PaymentProofRepository) Create(ctx context.Context, proof *domain.PaymentProof) (*domain.PaymentProof, error) {
	return scanPaymentProof(r.pool.QueryRow(ctx, upsertPaymentProofQuery,
		proof.ID, proof.StudentID, proof.TransactionID,
		proof.ThumbnailPath, proof.DisplayPath, proof.OriginalPath,
	))
}

// GetByTransactionID retrieves the proof of a transaction
func (r *PaymentProofRepository) GetByTransactionID(ctx context.Context, studentID uuid.UUID, transactionID uuid.UUID) (*domain.PaymentProof, error) {
	proof, err := scanPaymentProof(r.pool.QueryRow(ctx, getPaymentProofQuery, studentID, transactionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrProofNotFound
		}
		return nil, err
	}
	return proof, nil
}

func scanPaymentProof(row pgx.Row) (*domain.PaymentProof, error) {
	var (
		p         domain.PaymentProof
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&p.ID, &p.StudentID, &p.TransactionID, &p.ThumbnailPath, &p.DisplayPath, &p.OriginalPath, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = createdAt.Time
	return &p, nil
}
