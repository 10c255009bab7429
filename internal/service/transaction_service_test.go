package service

import (
	"testing"
	"time"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/jpmelo/financio-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTransactions(t *testing.T, repo *testutil.MockTransactionRepository, accountID int32, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		_, err := repo.CreateTx(&testutil.MockTx{}, &domain.Transaction{
			WorkspaceID:     1,
			AccountID:       accountID,
			CategoryID:      1,
			Description:     "installment",
			Amount:          dec("100"),
			Direction:       domain.TransactionDirectionExpense,
			TransactionDate: time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
			PaymentMethod:   "pix",
		})
		require.NoError(t, err)
	}
}

func TestGetByAccount_Pagination(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	svc := NewTransactionService(transactionRepo, accountRepo)

	account, err := accountRepo.Create(&domain.Account{WorkspaceID: 1, Name: "Checking", Balance: dec("1000")})
	require.NoError(t, err)
	seedTransactions(t, transactionRepo, account.ID, 25)

	page, err := svc.GetByAccount(1, account.ID, &domain.TransactionFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, int64(25), page.TotalItems)
	assert.Equal(t, int32(3), page.TotalPages)

	last, err := svc.GetByAccount(1, account.ID, &domain.TransactionFilters{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, last.Data, 5)
}

func TestGetByAccount_ClampsFilters(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	svc := NewTransactionService(transactionRepo, accountRepo)

	account, err := accountRepo.Create(&domain.Account{WorkspaceID: 1, Name: "Checking", Balance: dec("1000")})
	require.NoError(t, err)
	seedTransactions(t, transactionRepo, account.ID, 3)

	// nil filters fall back to the defaults.
	page, err := svc.GetByAccount(1, account.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), page.Page)
	assert.Equal(t, int32(domain.DefaultPageSize), page.PageSize)

	// An oversized page size is clamped.
	page, err = svc.GetByAccount(1, account.ID, &domain.TransactionFilters{Page: -1, PageSize: 10000})
	require.NoError(t, err)
	assert.Equal(t, int32(1), page.Page)
	assert.Equal(t, int32(domain.MaxPageSize), page.PageSize)
}

func TestGetByAccount_DateAndDirectionFilters(t *testing.T) {
	accountRepo := testutil.NewMockAccountRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	svc := NewTransactionService(transactionRepo, accountRepo)

	account, err := accountRepo.Create(&domain.Account{WorkspaceID: 1, Name: "Checking", Balance: dec("1000")})
	require.NoError(t, err)
	seedTransactions(t, transactionRepo, account.ID, 5)

	start := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	expense := domain.TransactionDirectionExpense

	page, err := svc.GetByAccount(1, account.ID, &domain.TransactionFilters{
		StartDate: &start,
		EndDate:   &end,
		Direction: &expense,
	})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)

	income := domain.TransactionDirectionIncome
	page, err = svc.GetByAccount(1, account.ID, &domain.TransactionFilters{Direction: &income})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestGetByAccount_UnknownAccount(t *testing.T) {
	svc := NewTransactionService(testutil.NewMockTransactionRepository(), testutil.NewMockAccountRepository())

	_, err := svc.GetByAccount(1, 999, nil)
	assert.Equal(t, domain.ErrAccountNotFound, err)
}
