package domain

import "errors"

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternalError = errors.New("internal error")

	ErrUserNotFound      = errors.New("user not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrAccountNotFound   = errors.New("account not found")

	// Payment business-rule violations. Every one of these is detected before
	// any write and aborts the whole payment transaction.
	ErrDuplicateInstallment      = errors.New("installment already paid")
	ErrNegativeBalance           = errors.New("payment would drive the financing balance negative")
	ErrExceedsOutstandingBalance = errors.New("early payment must be less than the outstanding balance")
	ErrInsufficientAmount        = errors.New("paid amount is less than the scheduled installment")
	ErrNoExpenseCategory         = errors.New("no default expense category configured")
	ErrLinkedTransactionExists   = errors.New("payment is linked to a ledger transaction and cannot be deleted")
)

// Validation constants
const (
	MaxAccountNameLength   = 255
	MaxFinancingNameLength = 200
)
