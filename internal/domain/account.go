package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a single cash position (bank account, wallet) whose balance is a
// cached scalar mutated by every subsystem that posts transactions against it.
// Concurrent writers serialize through a row-level lock taken inside the
// posting transaction.
type Account struct {
	ID          int32           `json:"id"`
	WorkspaceID int32           `json:"workspaceId"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *time.Time      `json:"deletedAt,omitempty"`
}

func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrInvalidInput
	}
	if len(a.Name) > MaxAccountNameLength {
		return ErrInvalidInput
	}
	return nil
}

type AccountRepository interface {
	Create(account *Account) (*Account, error)
	GetByID(workspaceID int32, id int32) (*Account, error)
	// GetByIDForUpdateTx loads the account inside tx with a row-level lock.
	GetByIDForUpdateTx(tx interface{}, workspaceID int32, id int32) (*Account, error)
	GetAllByWorkspace(workspaceID int32) ([]*Account, error)
	// DebitTx decrements the cached balance inside tx.
	DebitTx(tx interface{}, workspaceID int32, id int32, amount decimal.Decimal) error
}
