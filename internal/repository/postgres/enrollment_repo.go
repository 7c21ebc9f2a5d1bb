package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnrollmentRepository implements domain.EnrollmentRepository using PostgreSQL
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

const enrollmentColumns = `
	student_id, student_name, course_name, batch_name,
	admission_date, duration_months, total_fee, installments,
	created_at, updated_at`

const getEnrollmentQuery = `
	SELECT` + enrollmentColumns + `
	FROM enrollments
	WHERE student_id = $1`

const updateInstallmentsQuery = `
	UPDATE enrollments
	SET installments = $2::jsonb, updated_at = NOW()
	WHERE student_id = $1
	RETURNING` + enrollmentColumns

// GetByStudentID retrieves the enrollment of a student
func (r *EnrollmentRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) (*domain.Enrollment, error) {
	enrollment, err := scanEnrollment(r.pool.QueryRow(ctx, getEnrollmentQuery, studentID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return enrollment, nil
}

// UpdateInstallments replaces the administrator-edited installment list
func (r *EnrollmentRepository) UpdateInstallments(ctx context.Context, studentID uuid.UUID, installments []domain.InstallmentOverride) (*domain.Enrollment, error) {
	raw, err := json.Marshal(installments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode installments: %w", err)
	}

	enrollment, err := scanEnrollment(r.pool.QueryRow(ctx, updateInstallmentsQuery, studentID, raw))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return enrollment, nil
}

func scanEnrollment(row pgx.Row) (*domain.Enrollment, error) {
	var (
		e         domain.Enrollment
		admission pgtype.Date
		totalFee  pgtype.Numeric
		raw       []byte
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&e.StudentID, &e.StudentName, &e.CourseName, &e.BatchName,
		&admission, &e.DurationMonths, &totalFee, &raw,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.AdmissionDate = pgDateToTime(admission)
	e.TotalFee = pgNumericToDecimal(totalFee)
	e.CreatedAt = createdAt.Time
	e.UpdatedAt = updatedAt.Time

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &e.Installments); err != nil {
			return nil, fmt.Errorf("failed to decode installments of %s: %w", e.StudentID.String(), err)
		}
	}
	return &e, nil
}
