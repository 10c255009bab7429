package service

import (
	"github.com/jpmelo/financio-backend/internal/domain"
)

// TransactionService exposes read access to the ledger. Transactions are only
// ever written through the payment unit of work (or by sibling subsystems
// outside this engine), never directly from here.
type TransactionService struct {
	transactionRepo domain.TransactionRepository
	accountRepo     domain.AccountRepository
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(transactionRepo domain.TransactionRepository, accountRepo domain.AccountRepository) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		accountRepo:     accountRepo,
	}
}

// GetByAccount lists ledger transactions for an account, paginated.
func (s *TransactionService) GetByAccount(workspaceID int32, accountID int32, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	if _, err := s.accountRepo.GetByID(workspaceID, accountID); err != nil {
		return nil, err
	}

	if filters == nil {
		filters = &domain.TransactionFilters{}
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = domain.DefaultPageSize
	}
	if filters.PageSize > domain.MaxPageSize {
		filters.PageSize = domain.MaxPageSize
	}

	return s.transactionRepo.GetByAccount(workspaceID, accountID, filters)
}

// GetByID retrieves a single ledger transaction.
func (s *TransactionService) GetByID(workspaceID int32, id int32) (*domain.Transaction, error) {
	return s.transactionRepo.GetByID(workspaceID, id)
}
