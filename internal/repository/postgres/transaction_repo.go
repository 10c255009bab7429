package postgres

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpmelo/financio-backend/internal/domain"
)

const transactionColumns = `id, workspace_id, account_id, category_id, description, amount,
	direction, transaction_date, payment_method, created_at`

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// CreateTx inserts a ledger transaction inside tx. Ledger rows are immutable;
// there is deliberately no update or delete here.
func (r *TransactionRepository) CreateTx(tx interface{}, transaction *domain.Transaction) (*domain.Transaction, error) {
	pgxTx, err := txFrom(tx)
	if err != nil {
		return nil, err
	}
	if err := transaction.Validate(); err != nil {
		return nil, err
	}

	amount, err := decimalToPgNumeric(transaction.Amount)
	if err != nil {
		return nil, err
	}

	row := pgxTx.QueryRow(context.Background(), `
		INSERT INTO transactions (workspace_id, account_id, category_id, description, amount,
			direction, transaction_date, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+transactionColumns,
		transaction.WorkspaceID, transaction.AccountID, transaction.CategoryID,
		transaction.Description, amount, string(transaction.Direction),
		transaction.TransactionDate, transaction.PaymentMethod,
	)
	return scanTransaction(row)
}

// GetByID retrieves a transaction by its ID within a workspace
func (r *TransactionRepository) GetByID(workspaceID int32, id int32) (*domain.Transaction, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	transaction, err := scanTransaction(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return transaction, err
}

// GetByAccount lists transactions for an account with optional filters, paginated
func (r *TransactionRepository) GetByAccount(workspaceID int32, accountID int32, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	ctx := context.Background()

	where := `WHERE workspace_id = $1 AND account_id = $2`
	args := []any{workspaceID, accountID}
	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		where += ` AND transaction_date >= $` + strconv.Itoa(len(args))
	}
	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		where += ` AND transaction_date <= $` + strconv.Itoa(len(args))
	}
	if filters.Direction != nil {
		args = append(args, string(*filters.Direction))
		where += ` AND direction = $` + strconv.Itoa(len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	offset := (filters.Page - 1) * filters.PageSize
	args = append(args, filters.PageSize, offset)
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions `+where+`
		ORDER BY transaction_date DESC, id DESC
		LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := int32(total / int64(filters.PageSize))
	if total%int64(filters.PageSize) != 0 {
		totalPages++
	}
	return &domain.PaginatedTransactions{
		Data:       transactions,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount numericScanner
	var direction string

	err := row.Scan(&t.ID, &t.WorkspaceID, &t.AccountID, &t.CategoryID, &t.Description, &amount.n,
		&direction, &t.TransactionDate, &t.PaymentMethod, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Amount = amount.decimal()
	t.Direction = domain.TransactionDirection(direction)
	return &t, nil
}
