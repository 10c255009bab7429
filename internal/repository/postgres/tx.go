package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpmelo/financio-backend/internal/domain"
)

// TxManager implements domain.TxManager on a pgx connection pool. Every write
// made through the handle passed to fn commits or rolls back as one unit.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new TxManager
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

var _ domain.TxManager = (*TxManager)(nil)

// WithinTx begins a transaction, runs fn with it, and commits. A non-nil
// error from fn (or from commit) rolls everything back.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx interface{}) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
