package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpmelo/financio-backend/internal/domain"
)

const paymentColumns = `p.id, p.financing_id, p.account_id, p.installment_number, p.payment_amount,
	p.principal_amount, p.interest_amount, p.payment_date, p.payment_method, p.payment_type,
	p.early_preference, p.balance_before, p.balance_after, p.transaction_id, p.observation,
	p.receipt_key, p.created_at, p.updated_at`

// uniqueViolation is the Postgres error code raised when the partial unique
// index on (financing_id, installment_number) rejects a second payment for
// the same installment. It is the database-level backstop for the in-tx
// duplicate check.
const uniqueViolation = "23505"

// FinancingPaymentRepository implements domain.FinancingPaymentRepository using PostgreSQL
type FinancingPaymentRepository struct {
	pool *pgxpool.Pool
}

// NewFinancingPaymentRepository creates a new FinancingPaymentRepository
func NewFinancingPaymentRepository(pool *pgxpool.Pool) *FinancingPaymentRepository {
	return &FinancingPaymentRepository{pool: pool}
}

// CreateTx inserts a payment inside tx
func (r *FinancingPaymentRepository) CreateTx(tx interface{}, payment *domain.FinancingPayment) (*domain.FinancingPayment, error) {
	pgxTx, err := txFrom(tx)
	if err != nil {
		return nil, err
	}

	amount, err := decimalToPgNumeric(payment.PaymentAmount)
	if err != nil {
		return nil, err
	}
	principal, err := decimalToPgNumeric(payment.PrincipalAmount)
	if err != nil {
		return nil, err
	}
	interest, err := decimalToPgNumeric(payment.InterestAmount)
	if err != nil {
		return nil, err
	}
	before, err := decimalToPgNumeric(payment.BalanceBefore)
	if err != nil {
		return nil, err
	}
	after, err := decimalToPgNumeric(payment.BalanceAfter)
	if err != nil {
		return nil, err
	}

	var preference *string
	if payment.EarlyPreference != nil {
		p := string(*payment.EarlyPreference)
		preference = &p
	}

	row := pgxTx.QueryRow(context.Background(), `
		INSERT INTO financing_payments AS p (financing_id, account_id, installment_number,
			payment_amount, principal_amount, interest_amount, payment_date, payment_method,
			payment_type, early_preference, balance_before, balance_after, transaction_id, observation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+paymentColumns,
		payment.FinancingID, payment.AccountID, payment.InstallmentNumber,
		amount, principal, interest, payment.PaymentDate, payment.PaymentMethod,
		string(payment.PaymentType), preference, before, after, payment.TransactionID, payment.Observation,
	)
	created, err := scanPayment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateInstallment
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a payment by ID, scoped to the workspace through its financing
func (r *FinancingPaymentRepository) GetByID(workspaceID int32, id int32) (*domain.FinancingPayment, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM financing_payments p
		JOIN financings f ON f.id = p.financing_id
		WHERE f.workspace_id = $1 AND p.id = $2`,
		workspaceID, id,
	)
	payment, err := scanPayment(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, err
}

// GetByFinancing retrieves all payments for a financing ordered by creation
func (r *FinancingPaymentRepository) GetByFinancing(financingID int32) ([]*domain.FinancingPayment, error) {
	return r.getByFinancing(r.pool, financingID)
}

// GetByFinancingTx retrieves all payments for a financing inside tx,
// including rows written earlier in the same transaction
func (r *FinancingPaymentRepository) GetByFinancingTx(tx interface{}, financingID int32) ([]*domain.FinancingPayment, error) {
	pgxTx, err := txFrom(tx)
	if err != nil {
		return nil, err
	}
	return r.getByFinancing(pgxTx, financingID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *FinancingPaymentRepository) getByFinancing(q querier, financingID int32) ([]*domain.FinancingPayment, error) {
	rows, err := q.Query(context.Background(), `
		SELECT `+paymentColumns+`
		FROM financing_payments p
		WHERE p.financing_id = $1
		ORDER BY p.created_at, p.id`,
		financingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.FinancingPayment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// GetByInstallmentTx checks whether an installment slot is already occupied.
// Returns domain.ErrPaymentNotFound when the slot is free.
func (r *FinancingPaymentRepository) GetByInstallmentTx(tx interface{}, financingID int32, installmentNumber int32) (*domain.FinancingPayment, error) {
	pgxTx, err := txFrom(tx)
	if err != nil {
		return nil, err
	}
	row := pgxTx.QueryRow(context.Background(), `
		SELECT `+paymentColumns+`
		FROM financing_payments p
		WHERE p.financing_id = $1 AND p.installment_number = $2`,
		financingID, installmentNumber,
	)
	payment, err := scanPayment(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, err
}

// UpdateObservation updates the free-text annotation on a payment
func (r *FinancingPaymentRepository) UpdateObservation(workspaceID int32, id int32, observation *string) (*domain.FinancingPayment, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		UPDATE financing_payments AS p
		SET observation = $3, updated_at = NOW()
		FROM financings f
		WHERE f.id = p.financing_id AND f.workspace_id = $1 AND p.id = $2
		RETURNING `+paymentColumns,
		workspaceID, id, observation,
	)
	payment, err := scanPayment(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, err
}

// UpdateReceiptKey updates the stored receipt object key on a payment
func (r *FinancingPaymentRepository) UpdateReceiptKey(workspaceID int32, id int32, receiptKey *string) (*domain.FinancingPayment, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		UPDATE financing_payments AS p
		SET receipt_key = $3, updated_at = NOW()
		FROM financings f
		WHERE f.id = p.financing_id AND f.workspace_id = $1 AND p.id = $2
		RETURNING `+paymentColumns,
		workspaceID, id, receiptKey,
	)
	payment, err := scanPayment(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, err
}

// Delete removes a payment row that is not linked to a ledger transaction.
// The guard is repeated here so the rule holds even for callers that skipped
// the service check.
func (r *FinancingPaymentRepository) Delete(workspaceID int32, id int32) error {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM financing_payments p
		USING financings f
		WHERE f.id = p.financing_id AND f.workspace_id = $1 AND p.id = $2
			AND p.transaction_id IS NULL`,
		workspaceID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLinkedTransactionExists
	}
	return nil
}

func scanPayment(row pgx.Row) (*domain.FinancingPayment, error) {
	var p domain.FinancingPayment
	var amount, principal, interest, before, after numericScanner
	var paymentType string
	var preference *string

	err := row.Scan(&p.ID, &p.FinancingID, &p.AccountID, &p.InstallmentNumber, &amount.n,
		&principal.n, &interest.n, &p.PaymentDate, &p.PaymentMethod, &paymentType,
		&preference, &before.n, &after.n, &p.TransactionID, &p.Observation,
		&p.ReceiptKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.PaymentAmount = amount.decimal()
	p.PrincipalAmount = principal.decimal()
	p.InterestAmount = interest.decimal()
	p.BalanceBefore = before.decimal()
	p.BalanceAfter = after.decimal()
	p.PaymentType = domain.PaymentType(paymentType)
	if preference != nil {
		pref := domain.EarlyPaymentPreference(*preference)
		p.EarlyPreference = &pref
	}
	return &p, nil
}
