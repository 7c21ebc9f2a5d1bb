package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dafibh/academia/academia-backend/internal/domain"
	"github.com/dafibh/academia/academia-backend/internal/service"
	"github.com/dafibh/academia/academia-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// testApp wires the handlers to in-memory repositories behind the real router
type testApp struct {
	e           *echo.Echo
	studentID   uuid.UUID
	enrollments *testutil.MockEnrollmentRepository
	payments    *testutil.MockPaymentRepository
	discounts   *testutil.MockDiscountRepository
	fees        *testutil.MockExtraFeeRepository
	transactor  *testutil.MockTransactor
	proofs      *testutil.MockPaymentProofRepository
	store       *testutil.MockProofStore
}

// newTestApp enrolls one student on 5 Jan 2025 for two months at 2000, with
// today pinned to 1 Jan 2025
func newTestApp(t *testing.T, withStorage bool) *testApp {
	t.Helper()

	a := &testApp{
		e:           echo.New(),
		enrollments: testutil.NewMockEnrollmentRepository(),
		payments:    testutil.NewMockPaymentRepository(),
		discounts:   testutil.NewMockDiscountRepository(),
		fees:        testutil.NewMockExtraFeeRepository(),
		transactor:  testutil.NewMockTransactor(),
		proofs:      testutil.NewMockPaymentProofRepository(),
	}
	a.e.Validator = NewRequestValidator()

	a.studentID = uuid.New()
	a.enrollments.AddEnrollment(&domain.Enrollment{
		StudentID:      a.studentID,
		StudentName:    "Tahmid Hasan",
		CourseName:     "SSC Mathematics",
		AdmissionDate:  testutil.Date(2025, time.January, 5),
		DurationMonths: 2,
		TotalFee:       decimal.NewFromInt(2000),
	})

	clock := testutil.FixedClock{T: testutil.Date(2025, time.January, 1)}
	rules := service.DefaultScheduleRules()
	locker := service.NewStudentLocker()

	paymentService := service.NewPaymentService(a.enrollments, a.payments, a.discounts, a.fees, a.transactor, clock, locker, rules)

	var proofService *service.ProofService
	if withStorage {
		a.store = testutil.NewMockProofStore()
		proofService = service.NewProofService(a.store, a.proofs, paymentService)
	} else {
		proofService = service.NewProofService(nil, a.proofs, paymentService)
	}

	RegisterRoutes(a.e, Handlers{
		Ledger:     NewLedgerHandler(service.NewLedgerService(a.enrollments, a.payments, a.discounts, a.fees, clock, rules)),
		Payment:    NewPaymentHandler(paymentService),
		ExtraFee:   NewExtraFeeHandler(service.NewExtraFeeService(a.enrollments, a.payments, a.discounts, a.fees, clock, rules)),
		Enrollment: NewEnrollmentHandler(service.NewEnrollmentService(a.enrollments, a.payments, a.discounts, a.fees, clock, locker, rules)),
		Proof:      NewProofHandler(proofService),
	}, nil)

	return a
}

func (a *testApp) path(suffix string) string {
	return "/api/v1/students/" + a.studentID.String() + suffix
}

func (a *testApp) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal problem details: %v (%s)", err, rec.Body.String())
	}
	return problem
}

func TestMalformedStudentID_StopsBeforeService(t *testing.T) {
	txPath := "/transactions/" + uuid.New().String()

	tests := []struct {
		name   string
		method string
		suffix string
		body   string
	}{
		{"ledger", http.MethodGet, "/ledger", ""},
		{"schedule", http.MethodGet, "/schedule", ""},
		{"update installments", http.MethodPut, "/installments", `{"installments":[{"number":1,"amount":"2000"}]}`},
		{"list extra fees", http.MethodGet, "/extra-fees", ""},
		{"create extra fee", http.MethodPost, "/extra-fees", `{"name":"Books","amount":"300"}`},
		{"payment history", http.MethodGet, "/payments", ""},
		{"preview payment", http.MethodPost, "/payments/preview", `{"installments":[1],"amount":"100","method":"cash"}`},
		{"process payment", http.MethodPost, "/payments", `{"installments":[1],"amount":"100","method":"cash"}`},
		{"get transaction", http.MethodGet, txPath, ""},
		{"get proof", http.MethodGet, txPath + "/proof", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, true)

			rec := app.do(tt.method, "/api/v1/students/not-a-uuid"+tt.suffix, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", rec.Code)
			}

			// Exactly one problem document is written
			problem := decodeProblem(t, rec)
			if len(problem.Errors) != 1 || problem.Errors[0].Field != "studentId" {
				t.Errorf("Expected a single studentId error, got %+v", problem.Errors)
			}

			if len(app.payments.Payments) != 0 {
				t.Errorf("Expected no payments recorded, got %d", len(app.payments.Payments))
			}
			if len(app.fees.Fees) != 0 {
				t.Errorf("Expected no extra fees created, got %d", len(app.fees.Fees))
			}
		})
	}
}
