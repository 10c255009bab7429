package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/jpmelo/financio-backend/internal/service"
	"github.com/jpmelo/financio-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentHandlerFixture struct {
	handler     *PaymentHandler
	accountRepo *testutil.MockAccountRepository
	financing   *domain.Financing
	account     *domain.Account
}

func newPaymentHandlerFixture(t *testing.T) *paymentHandlerFixture {
	t.Helper()

	financingRepo := testutil.NewMockFinancingRepository()
	accountRepo := testutil.NewMockAccountRepository()
	paymentRepo := testutil.NewMockFinancingPaymentRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	categoryRepo := testutil.NewMockCategoryRepository()

	principal := decimal.RequireFromString("12000")
	financing, err := financingRepo.Create(&domain.Financing{
		WorkspaceID:    1,
		Name:           "Car financing",
		Principal:      principal,
		PeriodicRate:   decimal.RequireFromString("0.01"),
		TermPeriods:    12,
		Method:         domain.MethodPrice,
		StartDate:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		CurrentBalance: principal,
		Status:         domain.FinancingStatusActive,
	})
	require.NoError(t, err)
	paymentRepo.WorkspaceByFinancing[financing.ID] = 1

	account, err := accountRepo.Create(&domain.Account{
		WorkspaceID: 1,
		Name:        "Checking",
		Balance:     decimal.RequireFromString("5000"),
	})
	require.NoError(t, err)

	categoryRepo.Categories[1] = &domain.Category{
		ID:          1,
		WorkspaceID: 1,
		Name:        "Financing",
		Kind:        domain.CategoryKindExpense,
		IsDefault:   true,
	}

	svc := service.NewPaymentService(testutil.NewMockTxManager(), financingRepo, accountRepo, paymentRepo, transactionRepo, categoryRepo)
	return &paymentHandlerFixture{
		handler:     NewPaymentHandler(svc),
		accountRepo: accountRepo,
		financing:   financing,
		account:     account,
	}
}

func TestPayInstallmentHandler(t *testing.T) {
	f := newPaymentHandlerFixture(t)

	body := `{"installmentNumber":1,"accountId":1,"paidAmount":"1066.19","paymentDate":"2026-02-15","paymentMethod":"pix"}`
	rec := doRequest(t, 1, http.MethodPost, "/api/v1/financings/1/payments", body, map[string]string{"id": "1"}, f.handler.PayInstallment)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.InstallmentNumber)
	assert.Equal(t, int32(1), *resp.InstallmentNumber)
	assert.Equal(t, "installment", resp.PaymentType)
	assert.Equal(t, "1066.19", resp.PaymentAmount)
	assert.Equal(t, "12000.00", resp.BalanceBefore)
	assert.Equal(t, "11053.81", resp.BalanceAfter)
	assert.Equal(t, "2026-02-15", resp.PaymentDate)
	assert.NotNil(t, resp.TransactionID)
	assert.False(t, resp.HasReceipt)
}

func TestPayInstallmentHandler_Duplicate(t *testing.T) {
	f := newPaymentHandlerFixture(t)

	body := `{"installmentNumber":1,"accountId":1,"paidAmount":"1066.19","paymentDate":"2026-02-15","paymentMethod":"pix"}`
	rec := doRequest(t, 1, http.MethodPost, "/api/v1/financings/1/payments", body, map[string]string{"id": "1"}, f.handler.PayInstallment)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, 1, http.MethodPost, "/api/v1/financings/1/payments", body, map[string]string{"id": "1"}, f.handler.PayInstallment)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "conflict")
}

func TestPayInstallmentHandler_InsufficientAmount(t *testing.T) {
	f := newPaymentHandlerFixture(t)

	body := `{"installmentNumber":1,"accountId":1,"paidAmount":"10.00","paymentDate":"2026-02-15","paymentMethod":"pix"}`
	rec := doRequest(t, 1, http.MethodPost, "/api/v1/financings/1/payments", body, map[string]string{"id": "1"}, f.handler.PayInstallment)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRegisterEarlyPaymentHandler(t *testing.T) {
	f := newPaymentHandlerFixture(t)

	body := `{"accountId":1,"paidAmount":"2000","paymentDate":"2026-03-01","paymentMethod":"transfer","preference":"shorten_term"}`
	rec := doRequest(t, 1, http.MethodPost, "/api/v1/financings/1/early-payments", body, map[string]string{"id": "1"}, f.handler.RegisterEarlyPayment)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.InstallmentNumber)
	assert.Equal(t, "early", resp.PaymentType)
	assert.Equal(t, "0.00", resp.InterestAmount)
	require.NotNil(t, resp.EarlyPreference)
	assert.Equal(t, "shorten_term", *resp.EarlyPreference)
}

func TestRegisterEarlyPaymentHandler_InvalidPreference(t *testing.T) {
	f := newPaymentHandlerFixture(t)

	body := `{"accountId":1,"paidAmount":"2000","paymentDate":"2026-03-01","paymentMethod":"transfer","preference":"skip"}`
	rec := doRequest(t, 1, http.MethodPost, "/api/v1/financings/1/early-payments", body, map[string]string{"id": "1"}, f.handler.RegisterEarlyPayment)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPaymentsHandler(t *testing.T) {
	f := newPaymentHandlerFixture(t)

	body := `{"installmentNumber":1,"accountId":1,"paidAmount":"1066.19","paymentDate":"2026-02-15","paymentMethod":"pix"}`
	rec := doRequest(t, 1, http.MethodPost, "/api/v1/financings/1/payments", body, map[string]string{"id": "1"}, f.handler.PayInstallment)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, 1, http.MethodGet, "/api/v1/financings/1/payments", "", map[string]string{"id": "1"}, f.handler.GetPayments)
	require.Equal(t, http.StatusOK, rec.Code)

	var payments []PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payments))
	assert.Len(t, payments, 1)

	rec = doRequest(t, 1, http.MethodGet, "/api/v1/financings/999/payments", "", map[string]string{"id": "999"}, f.handler.GetPayments)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
