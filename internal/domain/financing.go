package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrFinancingNotFound         = errors.New("financing not found")
	ErrFinancingNameEmpty        = errors.New("financing name is required")
	ErrFinancingNameTooLong      = errors.New("financing name must be 200 characters or less")
	ErrFinancingPrincipalInvalid = errors.New("financing principal must be positive")
	ErrFinancingRateInvalid      = errors.New("periodic rate must be zero or positive")
	ErrFinancingTermInvalid      = errors.New("term must be at least 1 period")
	ErrFinancingMethodInvalid    = errors.New("amortization method must be price or sac")
	ErrFinancingHasPayments      = errors.New("financing has recorded payments and cannot be deleted")
)

type AmortizationMethod string

const (
	MethodPrice AmortizationMethod = "price"
	MethodSAC   AmortizationMethod = "sac"
)

type FinancingStatus string

const (
	FinancingStatusActive  FinancingStatus = "active"
	FinancingStatusSettled FinancingStatus = "settled"
)

// Financing is a loan being repaid in periodic installments. CurrentBalance,
// TotalPaid, TotalInterestPaid and PaidInstallments are a cache of what the
// balance projection recomputes from the payment history; they are refreshed
// transactionally on every committed payment and only ever mutated there.
// The active -> settled transition is one-directional.
type Financing struct {
	ID                int32              `json:"id"`
	WorkspaceID       int32              `json:"workspaceId"`
	Name              string             `json:"name"`
	Principal         decimal.Decimal    `json:"principal"`
	PeriodicRate      decimal.Decimal    `json:"periodicRate"` // per-period fraction, e.g. 0.01 = 1% monthly
	TermPeriods       int32              `json:"termPeriods"`
	Method            AmortizationMethod `json:"method"`
	StartDate         time.Time          `json:"startDate"`
	CurrentBalance    decimal.Decimal    `json:"currentBalance"`
	TotalPaid         decimal.Decimal    `json:"totalPaid"`
	TotalInterestPaid decimal.Decimal    `json:"totalInterestPaid"`
	PaidInstallments  int32              `json:"paidInstallments"`
	Status            FinancingStatus    `json:"status"`
	Notes             *string            `json:"notes,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
	DeletedAt         *time.Time         `json:"deletedAt,omitempty"`
}

func (f *Financing) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrFinancingNameEmpty
	}
	if len(f.Name) > MaxFinancingNameLength {
		return ErrFinancingNameTooLong
	}
	if f.Principal.LessThanOrEqual(decimal.Zero) {
		return ErrFinancingPrincipalInvalid
	}
	if f.PeriodicRate.IsNegative() {
		return ErrFinancingRateInvalid
	}
	if f.TermPeriods < 1 {
		return ErrFinancingTermInvalid
	}
	if f.Method != MethodPrice && f.Method != MethodSAC {
		return ErrFinancingMethodInvalid
	}
	return nil
}

// IsSettled reports whether every scheduled installment has been paid.
func (f *Financing) IsSettled() bool {
	return f.PaidInstallments >= f.TermPeriods
}

// FinancingAggregates is the projected state persisted back onto the cached
// columns after each payment.
type FinancingAggregates struct {
	CurrentBalance    decimal.Decimal `json:"currentBalance"`
	TotalPaid         decimal.Decimal `json:"totalPaid"`
	TotalInterestPaid decimal.Decimal `json:"totalInterestPaid"`
	PaidInstallments  int32           `json:"paidInstallments"`
	Status            FinancingStatus `json:"status"`
}

type FinancingRepository interface {
	Create(financing *Financing) (*Financing, error)
	GetByID(workspaceID int32, id int32) (*Financing, error)
	// GetByIDForUpdateTx loads the financing inside tx with a row-level lock;
	// this lock is the serialization point for concurrent payments against the
	// same financing.
	GetByIDForUpdateTx(tx interface{}, workspaceID int32, id int32) (*Financing, error)
	GetAllByWorkspace(workspaceID int32) ([]*Financing, error)
	UpdateAggregatesTx(tx interface{}, id int32, aggregates FinancingAggregates) error
	SoftDelete(workspaceID int32, id int32) error
}
