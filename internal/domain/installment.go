package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPartial InstallmentStatus = "partial"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
)

// Installment is one scheduled tuition payment. It is never stored; Paid, Discount, Due and
// Status are filled by the ledger calculator from payment history.
type Installment struct {
	Number        int32             `json:"number"`
	Name          string            `json:"name"`
	Year          int               `json:"year"`
	Month         int               `json:"month"`
	MonthLabel    string            `json:"monthLabel"`
	DueDate       time.Time         `json:"dueDate"`
	Amount        decimal.Decimal   `json:"amount"`
	Paid          decimal.Decimal   `json:"paid"`
	Discount      decimal.Decimal   `json:"discount"`
	Due           decimal.Decimal   `json:"due"`
	Status        InstallmentStatus `json:"status"`
	MonthsOverdue int               `json:"monthsOverdue"`
}

// Credited returns the amount settled against the installment (received plus discounted)
func (i *Installment) Credited() decimal.Decimal {
	return i.Paid.Add(i.Discount)
}
