package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpmelo/financio-backend/internal/domain"
)

const categoryColumns = `id, workspace_id, name, kind, is_default, created_at`

// CategoryRepository implements domain.CategoryRepository using PostgreSQL
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// GetByID retrieves a category by its ID within a workspace
func (r *CategoryRepository) GetByID(workspaceID int32, id int32) (*domain.Category, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return category, nil
}

// FindDefaultExpense returns the workspace's default expense category,
// or (nil, nil) when none is configured.
func (r *CategoryRepository) FindDefaultExpense(workspaceID int32) (*domain.Category, error) {
	return r.findDefaultExpense(context.Background(), r.pool, workspaceID)
}

// FindDefaultExpenseTx is the transactional variant of FindDefaultExpense.
func (r *CategoryRepository) FindDefaultExpenseTx(tx interface{}, workspaceID int32) (*domain.Category, error) {
	pgxTx, err := txFrom(tx)
	if err != nil {
		return nil, err
	}
	return r.findDefaultExpense(context.Background(), pgxTx, workspaceID)
}

func (r *CategoryRepository) findDefaultExpense(ctx context.Context, q querier, workspaceID int32) (*domain.Category, error) {
	row := q.QueryRow(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE workspace_id = $1 AND kind = $2 AND is_default = TRUE
		ORDER BY id
		LIMIT 1`,
		workspaceID, string(domain.CategoryKindExpense),
	)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return category, nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	var kind string
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &kind, &c.IsDefault, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Kind = domain.CategoryKind(kind)
	return &c, nil
}
