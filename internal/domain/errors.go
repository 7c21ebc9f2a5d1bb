package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrExtraFeeNotFound    = errors.New("extra fee not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrProofNotFound       = errors.New("payment proof not found")
	ErrNameRequired        = errors.New("name is required")
	ErrNameTooLong         = errors.New("name exceeds maximum length")
)

// Validation constants
const (
	MaxExtraFeeNameLength = 200
	MaxReasonLength       = 500
)

// InvalidScheduleError is returned when enrollment parameters cannot produce a schedule.
type InvalidScheduleError struct {
	Field  string
	Reason string
}

func (e InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule: %s %s", e.Field, e.Reason)
}

// ValidationError reports a transaction input problem. Item identifies the offending
// payable item when the problem is item specific.
type ValidationError struct {
	Field   string
	Item    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("validation failed: %s (%s): %s", e.Field, e.Item, e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// AllocationInfeasibleError is returned when a discount cannot be spread across the
// selected items without exceeding an item's due amount.
type AllocationInfeasibleError struct {
	Requested   decimal.Decimal
	Allocated   decimal.Decimal
	Unallocated decimal.Decimal
}

func (e AllocationInfeasibleError) Error() string {
	return fmt.Sprintf("discount of %s cannot be allocated: %s allocated, %s left over",
		e.Requested.String(), e.Allocated.String(), e.Unallocated.String())
}

// PersistenceError wraps a failed store write. Nothing of the transaction was committed
// and the caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failed operation may be resubmitted
func (e *PersistenceError) Retryable() bool {
	return true
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsPersistenceError reports whether err is (or wraps) a PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
