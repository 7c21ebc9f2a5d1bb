package service

import (
	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PayableItem is one selected installment or extra fee with its current due amount
type PayableItem struct {
	Target domain.PaymentTarget
	Label  string
	Due    decimal.Decimal
}

// AllocationResult is the per-item split of a capped discount total
type AllocationResult struct {
	SelectionTotal decimal.Decimal
	Total          decimal.Decimal
	Allocations    []domain.DiscountAllocation
}

// AmountFor returns the discount allocated to the item at index i
func (r *AllocationResult) AmountFor(i int) decimal.Decimal {
	if i < 0 || i >= len(r.Allocations) {
		return decimal.Zero
	}
	return r.Allocations[i].Amount
}

// FitsPrecision reports whether d has no more than precision decimal places
func FitsPrecision(d decimal.Decimal, precision int32) bool {
	return d.Equal(d.Truncate(precision))
}

// CalculateDiscountTotal returns the capped discount for a selection total.
// Fixed: min(total, value) with value floored to precision. Percentage: min(total, total*value/100)
// rounded to precision.
func CalculateDiscountTotal(selectionTotal decimal.Decimal, kind domain.DiscountKind, value decimal.Decimal, precision int32) decimal.Decimal {
	if value.LessThanOrEqual(decimal.Zero) || selectionTotal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	var d decimal.Decimal
	switch kind {
	case domain.DiscountKindPercentage:
		d = selectionTotal.Mul(value).Div(hundred).Round(precision)
	default:
		d = value.RoundFloor(precision)
	}

	if d.GreaterThan(selectionTotal) {
		return selectionTotal
	}
	return d
}

// AllocateDiscount spreads a discount over the selected items in proportion to their due
// amounts. Shares are rounded down to precision; the last item takes the exact remainder.
// Every share is capped at its item's due and whatever capping leaves over is handed to
// items with headroom in a second pass, so the allocations always sum to the capped total.
func AllocateDiscount(items []PayableItem, kind domain.DiscountKind, value decimal.Decimal, precision int32) (*AllocationResult, error) {
	if !kind.IsValid() {
		return nil, domain.ValidationError{Field: "discount.kind", Message: "must be fixed or percentage"}
	}
	if value.IsNegative() {
		return nil, domain.ValidationError{Field: "discount.value", Message: "must not be negative"}
	}

	selectionTotal := decimal.Zero
	for _, item := range items {
		if item.Due.IsNegative() {
			return nil, domain.ValidationError{Field: "items", Item: item.Target.Key(), Message: "due amount must not be negative"}
		}
		selectionTotal = selectionTotal.Add(item.Due)
	}

	total := CalculateDiscountTotal(selectionTotal, kind, value, precision)

	result := &AllocationResult{
		SelectionTotal: selectionTotal,
		Total:          total,
		Allocations:    make([]domain.DiscountAllocation, len(items)),
	}
	for i, item := range items {
		result.Allocations[i] = domain.DiscountAllocation{Target: item.Target, Amount: decimal.Zero}
	}
	if total.IsZero() {
		return result, nil
	}

	// First pass: proportional shares consumed from a running pool
	remaining := total
	for i, item := range items {
		var share decimal.Decimal
		if i == len(items)-1 {
			share = remaining
		} else {
			share = total.Mul(item.Due).Div(selectionTotal).RoundFloor(precision)
		}
		share = decimal.Min(share, item.Due, remaining)
		result.Allocations[i].Amount = share
		remaining = remaining.Sub(share)
	}

	// Second pass: redistribute what capping left over
	for i, item := range items {
		if remaining.IsZero() {
			break
		}
		headroom := item.Due.Sub(result.Allocations[i].Amount)
		if !headroom.IsPositive() {
			continue
		}
		extra := decimal.Min(headroom, remaining)
		result.Allocations[i].Amount = result.Allocations[i].Amount.Add(extra)
		remaining = remaining.Sub(extra)
	}

	if remaining.IsPositive() {
		return nil, domain.AllocationInfeasibleError{
			Requested:   total,
			Allocated:   total.Sub(remaining),
			Unallocated: remaining,
		}
	}

	return result, nil
}
