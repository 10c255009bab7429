package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound       = errors.New("financing payment not found")
	ErrPaymentAmountInvalid  = errors.New("payment amount must be positive")
	ErrPaymentSplitInvalid   = errors.New("principal and interest amounts must be zero or positive")
	ErrInstallmentNotFound   = errors.New("installment number is outside the financing schedule")
	ErrPreferenceInvalid     = errors.New("early payment preference must be shorten_term or reduce_installment")
	ErrPaymentMethodRequired = errors.New("payment method is required")
)

type PaymentType string

const (
	PaymentTypeInstallment PaymentType = "installment"
	PaymentTypePartial     PaymentType = "partial"
	PaymentTypeEarly       PaymentType = "early"
)

// EarlyPaymentPreference records what the payer wants done with the shortened
// debt. It is stored as intent only; the remaining schedule is projected on
// demand from the original parameters plus the payment history.
type EarlyPaymentPreference string

const (
	PreferenceShortenTerm       EarlyPaymentPreference = "shorten_term"
	PreferenceReduceInstallment EarlyPaymentPreference = "reduce_installment"
)

// FinancingPayment records one applied payment. InstallmentNumber is nil for
// early payments, which are not bound to a schedule row. Once created, only
// Observation and ReceiptKey may change; a payment carrying a TransactionID
// moved real money and can never be deleted.
type FinancingPayment struct {
	ID                int32                   `json:"id"`
	FinancingID       int32                   `json:"financingId"`
	AccountID         int32                   `json:"accountId"`
	InstallmentNumber *int32                  `json:"installmentNumber,omitempty"`
	PaymentAmount     decimal.Decimal         `json:"paymentAmount"`
	PrincipalAmount   decimal.Decimal         `json:"principalAmount"`
	InterestAmount    decimal.Decimal         `json:"interestAmount"`
	PaymentDate       time.Time               `json:"paymentDate"`
	PaymentMethod     string                  `json:"paymentMethod"`
	PaymentType       PaymentType             `json:"paymentType"`
	EarlyPreference   *EarlyPaymentPreference `json:"earlyPreference,omitempty"`
	BalanceBefore     decimal.Decimal         `json:"balanceBefore"`
	BalanceAfter      decimal.Decimal         `json:"balanceAfter"`
	TransactionID     *int32                  `json:"transactionId,omitempty"`
	Observation       *string                 `json:"observation,omitempty"`
	ReceiptKey        *string                 `json:"-"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

func (p *FinancingPayment) Validate() error {
	if p.FinancingID <= 0 || p.AccountID <= 0 {
		return ErrInvalidInput
	}
	if p.PaymentAmount.LessThanOrEqual(decimal.Zero) {
		return ErrPaymentAmountInvalid
	}
	if p.PrincipalAmount.IsNegative() || p.InterestAmount.IsNegative() {
		return ErrPaymentSplitInvalid
	}
	if p.InstallmentNumber != nil && *p.InstallmentNumber < 1 {
		return ErrInstallmentNotFound
	}
	if p.PaymentMethod == "" {
		return ErrPaymentMethodRequired
	}
	switch p.PaymentType {
	case PaymentTypeInstallment, PaymentTypePartial, PaymentTypeEarly:
	default:
		return ErrInvalidInput
	}
	return nil
}

type FinancingPaymentRepository interface {
	CreateTx(tx interface{}, payment *FinancingPayment) (*FinancingPayment, error)
	GetByID(workspaceID int32, id int32) (*FinancingPayment, error)
	GetByFinancing(financingID int32) ([]*FinancingPayment, error)
	GetByFinancingTx(tx interface{}, financingID int32) ([]*FinancingPayment, error)
	// GetByInstallmentTx returns ErrPaymentNotFound when the slot is free.
	GetByInstallmentTx(tx interface{}, financingID int32, installmentNumber int32) (*FinancingPayment, error)
	UpdateObservation(workspaceID int32, id int32, observation *string) (*FinancingPayment, error)
	UpdateReceiptKey(workspaceID int32, id int32, receiptKey *string) (*FinancingPayment, error)
	// Delete refuses rows with a non-null transaction id.
	Delete(workspaceID int32, id int32) error
}
