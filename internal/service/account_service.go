package service

import (
	"strings"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountService handles account business logic
type AccountService struct {
	accountRepo domain.AccountRepository
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo domain.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

// CreateAccount creates a new account with an opening balance.
func (s *AccountService) CreateAccount(workspaceID int32, name string, openingBalance decimal.Decimal) (*domain.Account, error) {
	account := &domain.Account{
		WorkspaceID: workspaceID,
		Name:        strings.TrimSpace(name),
		Balance:     openingBalance,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return s.accountRepo.Create(account)
}

// GetAccounts retrieves all accounts for a workspace
func (s *AccountService) GetAccounts(workspaceID int32) ([]*domain.Account, error) {
	return s.accountRepo.GetAllByWorkspace(workspaceID)
}

// GetAccountByID retrieves an account by ID within a workspace
func (s *AccountService) GetAccountByID(workspaceID int32, id int32) (*domain.Account, error) {
	return s.accountRepo.GetByID(workspaceID, id)
}
