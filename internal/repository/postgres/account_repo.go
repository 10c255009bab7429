package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, workspace_id, name, balance, created_at, updated_at, deleted_at`

// AccountRepository implements domain.AccountRepository using PostgreSQL
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create creates a new account
func (r *AccountRepository) Create(account *domain.Account) (*domain.Account, error) {
	ctx := context.Background()
	balance, err := decimalToPgNumeric(account.Balance)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (workspace_id, name, balance)
		VALUES ($1, $2, $3)
		RETURNING `+accountColumns,
		account.WorkspaceID, account.Name, balance,
	)
	return scanAccount(row)
}

// GetByID retrieves an account by its ID within a workspace
func (r *AccountRepository) GetByID(workspaceID int32, id int32) (*domain.Account, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`,
		workspaceID, id,
	)
	account, err := scanAccount(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrAccountNotFound
	}
	return account, err
}

// GetByIDForUpdateTx loads the account inside tx with a row-level lock so
// concurrent writers against the same cached balance serialize.
func (r *AccountRepository) GetByIDForUpdateTx(tx interface{}, workspaceID int32, id int32) (*domain.Account, error) {
	pgxTx, err := txFrom(tx)
	if err != nil {
		return nil, err
	}
	row := pgxTx.QueryRow(context.Background(), `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
		FOR UPDATE`,
		workspaceID, id,
	)
	account, err := scanAccount(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrAccountNotFound
	}
	return account, err
}

// GetAllByWorkspace retrieves all accounts for a workspace
func (r *AccountRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Account, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE workspace_id = $1 AND deleted_at IS NULL
		ORDER BY name`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// DebitTx decrements the cached balance inside tx
func (r *AccountRepository) DebitTx(tx interface{}, workspaceID int32, id int32, amount decimal.Decimal) error {
	pgxTx, err := txFrom(tx)
	if err != nil {
		return err
	}
	debit, err := decimalToPgNumeric(amount)
	if err != nil {
		return err
	}

	tag, err := pgxTx.Exec(context.Background(), `
		UPDATE accounts
		SET balance = balance - $3, updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`,
		workspaceID, id, debit,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var balance numericScanner

	err := row.Scan(&a.ID, &a.WorkspaceID, &a.Name, &balance.n, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	if err != nil {
		return nil, err
	}
	a.Balance = balance.decimal()
	return &a, nil
}
