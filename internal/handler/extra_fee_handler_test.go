package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateExtraFee_Success(t *testing.T) {
	app := newTestApp(t, false)

	rec := app.do(http.MethodPost, app.path("/extra-fees"), `{"name":"Exam fee","amount":"500"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var fee domain.ExtraFee
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fee))
	assert.Equal(t, "Exam fee", fee.Name)
	assert.Equal(t, "500", fee.Due.String())

	rec = app.do(http.MethodGet, app.path("/extra-fees"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var fees []domain.ExtraFee
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fees))
	assert.Len(t, fees, 1)
}

func TestCreateExtraFee_Duplicate(t *testing.T) {
	app := newTestApp(t, false)

	first := app.do(http.MethodPost, app.path("/extra-fees"), `{"name":"Exam fee","amount":"500"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	rec := app.do(http.MethodPost, app.path("/extra-fees"), `{"name":"exam FEE","amount":"300"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestCreateExtraFee_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"amount":"500"}`, "name"},
		{"blank name", `{"name":"   ","amount":"500"}`, "name"},
		{"zero amount", `{"name":"Books","amount":"0"}`, "amount"},
		{"negative amount", `{"name":"Books","amount":"-20"}`, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, false)

			rec := app.do(http.MethodPost, app.path("/extra-fees"), tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", rec.Code)
			}
			problem := decodeProblem(t, rec)
			require.NotEmpty(t, problem.Errors)
			assert.Equal(t, tt.field, problem.Errors[0].Field)
		})
	}
}
