package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionDirection string

const (
	TransactionDirectionIncome  TransactionDirection = "income"
	TransactionDirectionExpense TransactionDirection = "expense"
)

// Transaction is an immutable ledger record of a single movement of money
// against an account. Payment transactions are created exactly once inside the
// payment unit of work and never updated or deleted afterwards.
type Transaction struct {
	ID              int32                `json:"id"`
	WorkspaceID     int32                `json:"workspaceId"`
	AccountID       int32                `json:"accountId"`
	CategoryID      int32                `json:"categoryId"`
	Description     string               `json:"description"`
	Amount          decimal.Decimal      `json:"amount"`
	Direction       TransactionDirection `json:"direction"`
	TransactionDate time.Time            `json:"transactionDate"`
	PaymentMethod   string               `json:"paymentMethod"`
	CreatedAt       time.Time            `json:"createdAt"`
}

func (t *Transaction) Validate() error {
	if t.AccountID <= 0 || t.CategoryID <= 0 {
		return ErrInvalidInput
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidInput
	}
	if t.Direction != TransactionDirectionIncome && t.Direction != TransactionDirectionExpense {
		return ErrInvalidInput
	}
	return nil
}

type TransactionFilters struct {
	StartDate *time.Time
	EndDate   *time.Time
	Direction *TransactionDirection
	Page      int32
	PageSize  int32
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginatedTransactions struct {
	Data       []*Transaction `json:"data"`
	Page       int32          `json:"page"`
	PageSize   int32          `json:"pageSize"`
	TotalItems int64          `json:"totalItems"`
	TotalPages int32          `json:"totalPages"`
}

type TransactionRepository interface {
	CreateTx(tx interface{}, transaction *Transaction) (*Transaction, error)
	GetByID(workspaceID int32, id int32) (*Transaction, error)
	GetByAccount(workspaceID int32, accountID int32, filters *TransactionFilters) (*PaginatedTransactions, error)
}
