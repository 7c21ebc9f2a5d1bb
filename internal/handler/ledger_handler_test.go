package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLedger_Success(t *testing.T) {
	app := newTestApp(t, false)

	paid := app.do(http.MethodPost, app.path("/payments"), `{"installments":[1],"amount":"400","method":"cash"}`)
	require.Equal(t, http.StatusCreated, paid.Code)

	rec := app.do(http.MethodGet, app.path("/ledger"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var ledger domain.Ledger
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ledger))
	require.Len(t, ledger.Installments, 2)
	assert.Equal(t, domain.InstallmentStatusPartial, ledger.Installments[0].Status)
	assert.Equal(t, "600", ledger.Installments[0].Due.String())
	assert.Equal(t, "1600", ledger.Snapshot.TotalDue.String())
}

func TestGetLedger_NotFound(t *testing.T) {
	app := newTestApp(t, false)

	rec := app.do(http.MethodGet, "/api/v1/students/"+uuid.New().String()+"/ledger", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
	assert.Equal(t, ErrorTypeNotFound, decodeProblem(t, rec).Type)
}

func TestGetSchedule_Success(t *testing.T) {
	app := newTestApp(t, false)

	rec := app.do(http.MethodGet, app.path("/schedule"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var schedule []domain.Installment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schedule))
	require.Len(t, schedule, 2)
	assert.Equal(t, "2025-01-10", schedule[0].DueDate.Format("2006-01-02"))
	assert.Equal(t, "1000", schedule[1].Amount.String())
}
