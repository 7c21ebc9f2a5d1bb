package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Enrollment is a student's registration in a course batch. The installment schedule is
// derived from it on every read.
type Enrollment struct {
	StudentID      uuid.UUID             `json:"studentId"`
	StudentName    string                `json:"studentName"`
	CourseName     string                `json:"courseName"`
	BatchName      string                `json:"batchName"`
	AdmissionDate  time.Time             `json:"admissionDate"`
	DurationMonths int32                 `json:"durationMonths"`
	TotalFee       decimal.Decimal       `json:"totalFee"`
	Installments   []InstallmentOverride `json:"installments,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// HasOverrides returns true if an administrator supplied an explicit installment list
func (e *Enrollment) HasOverrides() bool {
	return len(e.Installments) > 0
}

// InstallmentOverride is one entry of an administrator-edited schedule. Empty fields are
// back-filled by the schedule generator.
type InstallmentOverride struct {
	Number     int32           `json:"number"`
	Name       string          `json:"name,omitempty"`
	DueDate    *time.Time      `json:"dueDate,omitempty"`
	MonthLabel string          `json:"monthLabel,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

type EnrollmentRepository interface {
	GetByStudentID(ctx context.Context, studentID uuid.UUID) (*Enrollment, error)
	UpdateInstallments(ctx context.Context, studentID uuid.UUID, installments []InstallmentOverride) (*Enrollment, error)
}
