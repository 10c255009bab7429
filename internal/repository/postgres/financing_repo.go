package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpmelo/financio-backend/internal/domain"
)

const financingColumns = `id, workspace_id, name, principal, periodic_rate, term_periods, method,
	start_date, current_balance, total_paid, total_interest_paid, paid_installments, status,
	notes, created_at, updated_at, deleted_at`

// FinancingRepository implements domain.FinancingRepository using PostgreSQL
type FinancingRepository struct {
	pool *pgxpool.Pool
}

// NewFinancingRepository creates a new FinancingRepository
func NewFinancingRepository(pool *pgxpool.Pool) *FinancingRepository {
	return &FinancingRepository{pool: pool}
}

// Create creates a new financing
func (r *FinancingRepository) Create(financing *domain.Financing) (*domain.Financing, error) {
	ctx := context.Background()

	principal, err := decimalToPgNumeric(financing.Principal)
	if err != nil {
		return nil, err
	}
	rate, err := decimalToPgNumeric(financing.PeriodicRate)
	if err != nil {
		return nil, err
	}
	balance, err := decimalToPgNumeric(financing.CurrentBalance)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO financings (workspace_id, name, principal, periodic_rate, term_periods, method,
			start_date, current_balance, total_paid, total_interest_paid, paid_installments, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 0, $9, $10)
		RETURNING `+financingColumns,
		financing.WorkspaceID, financing.Name, principal, rate, financing.TermPeriods,
		string(financing.Method), financing.StartDate, balance,
		string(domain.FinancingStatusActive), financing.Notes,
	)
	return scanFinancing(row)
}

// GetByID retrieves a financing by its ID within a workspace
func (r *FinancingRepository) GetByID(workspaceID int32, id int32) (*domain.Financing, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+financingColumns+`
		FROM financings
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`,
		workspaceID, id,
	)
	financing, err := scanFinancing(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrFinancingNotFound
	}
	return financing, err
}

// GetByIDForUpdateTx loads the financing inside tx with a row-level lock. The
// lock serializes concurrent payments against the same financing.
func (r *FinancingRepository) GetByIDForUpdateTx(tx interface{}, workspaceID int32, id int32) (*domain.Financing, error) {
	pgxTx, err := txFrom(tx)
	if err != nil {
		return nil, err
	}
	row := pgxTx.QueryRow(context.Background(), `
		SELECT `+financingColumns+`
		FROM financings
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
		FOR UPDATE`,
		workspaceID, id,
	)
	financing, err := scanFinancing(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrFinancingNotFound
	}
	return financing, err
}

// GetAllByWorkspace retrieves all financings for a workspace
func (r *FinancingRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Financing, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+financingColumns+`
		FROM financings
		WHERE workspace_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var financings []*domain.Financing
	for rows.Next() {
		financing, err := scanFinancing(rows)
		if err != nil {
			return nil, err
		}
		financings = append(financings, financing)
	}
	return financings, rows.Err()
}

// UpdateAggregatesTx persists the projected aggregates inside tx, including
// the one-directional active -> settled transition.
func (r *FinancingRepository) UpdateAggregatesTx(tx interface{}, id int32, aggregates domain.FinancingAggregates) error {
	pgxTx, err := txFrom(tx)
	if err != nil {
		return err
	}

	balance, err := decimalToPgNumeric(aggregates.CurrentBalance)
	if err != nil {
		return err
	}
	totalPaid, err := decimalToPgNumeric(aggregates.TotalPaid)
	if err != nil {
		return err
	}
	totalInterest, err := decimalToPgNumeric(aggregates.TotalInterestPaid)
	if err != nil {
		return err
	}

	tag, err := pgxTx.Exec(context.Background(), `
		UPDATE financings
		SET current_balance = $2, total_paid = $3, total_interest_paid = $4,
			paid_installments = $5, status = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		id, balance, totalPaid, totalInterest, aggregates.PaidInstallments, string(aggregates.Status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFinancingNotFound
	}
	return nil
}

// SoftDelete marks a financing as deleted
func (r *FinancingRepository) SoftDelete(workspaceID int32, id int32) error {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `
		UPDATE financings
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`,
		workspaceID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFinancingNotFound
	}
	return nil
}

func scanFinancing(row pgx.Row) (*domain.Financing, error) {
	var f domain.Financing
	var principal, rate, balance, totalPaid, totalInterest numericScanner
	var method, status string

	err := row.Scan(&f.ID, &f.WorkspaceID, &f.Name, &principal.n, &rate.n, &f.TermPeriods, &method,
		&f.StartDate, &balance.n, &totalPaid.n, &totalInterest.n, &f.PaidInstallments, &status,
		&f.Notes, &f.CreatedAt, &f.UpdatedAt, &f.DeletedAt)
	if err != nil {
		return nil, err
	}

	f.Principal = principal.decimal()
	f.PeriodicRate = rate.decimal()
	f.CurrentBalance = balance.decimal()
	f.TotalPaid = totalPaid.decimal()
	f.TotalInterestPaid = totalInterest.decimal()
	f.Method = domain.AmortizationMethod(method)
	f.Status = domain.FinancingStatus(status)
	return &f, nil
}
