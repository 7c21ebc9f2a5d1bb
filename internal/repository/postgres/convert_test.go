package postgres

import (
	"testing"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericConversion(t *testing.T) {
	for _, s := range []string{"0", "3333", "33.34", "-12.5", "1000000.01"} {
		t.Run(s, func(t *testing.T) {
			d := decimal.RequireFromString(s)
			num, err := decimalToPgNumeric(d)
			require.NoError(t, err)
			got := pgNumericToDecimal(num)
			if !got.Equal(d) {
				t.Errorf("round trip of %s gave %s", s, got.String())
			}
		})
	}

	assert.True(t, pgNumericToDecimal(pgtype.Numeric{}).IsZero())
}

func TestDateConversion(t *testing.T) {
	assert.False(t, timeToPgDate(time.Time{}).Valid)

	local := time.Date(2025, time.March, 25, 23, 30, 0, 0, time.FixedZone("UTC+6", 6*3600))
	got := pgDateToTime(timeToPgDate(local))
	assert.Equal(t, time.Date(2025, time.March, 25, 0, 0, 0, 0, time.UTC), got)
}

func TestTargetColumns(t *testing.T) {
	installment, feeName := targetColumns(domain.TuitionTarget(3))
	assert.Equal(t, pgtype.Int4{Int32: 3, Valid: true}, installment)
	assert.False(t, feeName.Valid)

	fee := &domain.ExtraFee{ID: uuid.New(), Name: "Exam fee"}
	installment, feeName = targetColumns(domain.ExtraFeeTarget(fee))
	assert.False(t, installment.Valid)
	assert.Equal(t, "Exam fee", feeName.String)

	target := scanTarget("extra_fee", installment, &fee.ID, feeName)
	assert.Equal(t, domain.ExtraFeeTarget(fee), target)
}

func TestAsPgxTx_RejectsForeignHandles(t *testing.T) {
	_, err := asPgxTx(struct{}{})
	assert.Error(t, err)
}

func TestStringPtrConversion(t *testing.T) {
	assert.Nil(t, pgTextToStringPtr(stringPtrToPgText(nil)))

	note := "paid at front desk"
	got := pgTextToStringPtr(stringPtrToPgText(&note))
	require.NotNil(t, got)
	assert.Equal(t, note, *got)
}
