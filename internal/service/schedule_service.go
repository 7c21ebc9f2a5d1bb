package service

import (
	"fmt"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/util"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCutoffDay is the last admission day billed from the same month
	DefaultCutoffDay = 20
	// DefaultDueDay is the day of month every installment falls due
	DefaultDueDay = 10
	// DefaultPrecision is the number of decimal places of the currency
	DefaultPrecision = 0
)

// ScheduleRules holds the business constants of schedule generation
type ScheduleRules struct {
	CutoffDay int
	DueDay    int
	Precision int32
}

// DefaultScheduleRules returns the academy's standard billing rules
func DefaultScheduleRules() ScheduleRules {
	return ScheduleRules{
		CutoffDay: DefaultCutoffDay,
		DueDay:    DefaultDueDay,
		Precision: DefaultPrecision,
	}
}

// GenerateSchedule derives the ordered installment schedule of an enrollment.
// An administrator-supplied installment list is used verbatim with missing display
// fields back-filled. Paid, Due and Status are left for the ledger calculator.
func GenerateSchedule(enrollment *domain.Enrollment, rules ScheduleRules) ([]domain.Installment, error) {
	if enrollment.DurationMonths <= 0 {
		return nil, domain.InvalidScheduleError{Field: "durationMonths", Reason: "must be at least 1"}
	}
	if enrollment.TotalFee.IsNegative() {
		return nil, domain.InvalidScheduleError{Field: "totalFee", Reason: "must not be negative"}
	}

	startYear, startMonth := CalculateStartMonth(enrollment.AdmissionDate, rules.CutoffDay)

	if enrollment.HasOverrides() {
		return backfillOverrides(enrollment.Installments, startYear, startMonth, rules), nil
	}

	n := int(enrollment.DurationMonths)
	amount := CalculateInstallmentAmount(enrollment.TotalFee, n, rules.Precision)

	installments := make([]domain.Installment, n)
	allocated := decimal.Zero
	for i := 0; i < n; i++ {
		year, month := util.AddMonths(startYear, startMonth, i)
		inst := newInstallment(int32(i+1), year, month, rules.DueDay)
		if i == n-1 {
			// Last installment absorbs the rounding remainder
			inst.Amount = enrollment.TotalFee.Sub(allocated)
		} else {
			inst.Amount = amount
			allocated = allocated.Add(amount)
		}
		installments[i] = inst
	}

	return installments, nil
}

// CalculateStartMonth returns the first billed year and month.
// If admission day <= cutoff day → schedule starts in the admission month
// If admission day > cutoff day → schedule starts in the next month
func CalculateStartMonth(admissionDate time.Time, cutoffDay int) (year, month int) {
	if admissionDate.Day() > cutoffDay {
		return util.AddMonths(admissionDate.Year(), int(admissionDate.Month()), 1)
	}
	return admissionDate.Year(), int(admissionDate.Month())
}

// CalculateInstallmentAmount returns total / n rounded down to precision decimal places.
// Rounding down keeps the final (remainder) installment non-negative.
func CalculateInstallmentAmount(total decimal.Decimal, n int, precision int32) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).RoundFloor(precision)
}

// DueDateFor returns the due date of the installment billed in year/month
func DueDateFor(year, month, dueDay int) time.Time {
	return util.CalculateActualDate(year, time.Month(month), dueDay)
}

func newInstallment(number int32, year, month, dueDay int) domain.Installment {
	return domain.Installment{
		Number:     number,
		Name:       installmentName(number),
		Year:       year,
		Month:      month,
		MonthLabel: util.MonthLabel(year, month),
		DueDate:    DueDateFor(year, month, dueDay),
		Amount:     decimal.Zero,
		Paid:       decimal.Zero,
		Discount:   decimal.Zero,
		Due:        decimal.Zero,
		Status:     domain.InstallmentStatusPending,
	}
}

func installmentName(number int32) string {
	return fmt.Sprintf("Installment %d", number)
}

func backfillOverrides(overrides []domain.InstallmentOverride, startYear, startMonth int, rules ScheduleRules) []domain.Installment {
	installments := make([]domain.Installment, len(overrides))
	for i, o := range overrides {
		number := o.Number
		if number <= 0 {
			number = int32(i + 1)
		}
		year, month := util.AddMonths(startYear, startMonth, int(number)-1)
		inst := newInstallment(number, year, month, rules.DueDay)
		inst.Amount = o.Amount

		if o.Name != "" {
			inst.Name = o.Name
		}
		if o.DueDate != nil {
			inst.DueDate = util.DateOnly(*o.DueDate)
			inst.Year = inst.DueDate.Year()
			inst.Month = int(inst.DueDate.Month())
			inst.MonthLabel = util.MonthLabel(inst.Year, inst.Month)
		}
		if o.MonthLabel != "" {
			inst.MonthLabel = o.MonthLabel
		}
		installments[i] = inst
	}
	return installments
}
