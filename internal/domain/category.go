package domain

import "time"

type CategoryKind string

const (
	CategoryKindIncome  CategoryKind = "income"
	CategoryKindExpense CategoryKind = "expense"
)

// Category tags ledger transactions. Category management lives outside this
// engine; payments only need the workspace's default expense category.
type Category struct {
	ID          int32        `json:"id"`
	WorkspaceID int32        `json:"workspaceId"`
	Name        string       `json:"name"`
	Kind        CategoryKind `json:"kind"`
	IsDefault   bool         `json:"isDefault"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type CategoryRepository interface {
	GetByID(workspaceID int32, id int32) (*Category, error)
	// FindDefaultExpense returns (nil, nil) when the workspace has no default
	// expense category configured.
	FindDefaultExpense(workspaceID int32) (*Category, error)
	FindDefaultExpenseTx(tx interface{}, workspaceID int32) (*Category, error)
}
