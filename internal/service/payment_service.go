package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/jpmelo/financio-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// negativeBalanceTolerance absorbs the rounding residue schedule rows carry; a
// shortfall beyond it is a real overpayment and rejects the whole payment.
var negativeBalanceTolerance = decimal.NewFromFloat(0.05)

// PaymentService applies financing payments. Every payment runs as one atomic
// unit of work touching four records: the ledger transaction, the payment row,
// the payer account balance, and the financing's cached aggregates. Either all
// four land or none do.
type PaymentService struct {
	txManager       domain.TxManager
	financingRepo   domain.FinancingRepository
	accountRepo     domain.AccountRepository
	paymentRepo     domain.FinancingPaymentRepository
	transactionRepo domain.TransactionRepository
	categoryRepo    domain.CategoryRepository
	eventPublisher  websocket.EventPublisher
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	txManager domain.TxManager,
	financingRepo domain.FinancingRepository,
	accountRepo domain.AccountRepository,
	paymentRepo domain.FinancingPaymentRepository,
	transactionRepo domain.TransactionRepository,
	categoryRepo domain.CategoryRepository,
) *PaymentService {
	return &PaymentService{
		txManager:       txManager,
		financingRepo:   financingRepo,
		accountRepo:     accountRepo,
		paymentRepo:     paymentRepo,
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *PaymentService) publishEvent(workspaceID int32, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(workspaceID, event)
	}
}

// ApplyPaymentInput is the orchestrator contract. InstallmentNumber is nil for
// early payments.
type ApplyPaymentInput struct {
	FinancingID       int32
	AccountID         int32
	InstallmentNumber *int32
	PaymentAmount     decimal.Decimal
	PrincipalAmount   decimal.Decimal
	InterestAmount    decimal.Decimal
	PaymentDate       time.Time
	PaymentMethod     string
	PaymentType       domain.PaymentType
	EarlyPreference   *domain.EarlyPaymentPreference
}

// ApplyPayment validates and persists one payment atomically.
//
// The row lock taken on the financing (and then the account) is the
// serialization point: of two concurrent payments against the same financing,
// the second waits and then revalidates against the committed state of the
// first, so a duplicate installment is always caught and balance math never
// runs on a stale read.
func (s *PaymentService) ApplyPayment(ctx context.Context, workspaceID int32, input ApplyPaymentInput) (*domain.FinancingPayment, error) {
	if input.PaymentAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrPaymentAmountInvalid
	}
	if input.PrincipalAmount.IsNegative() || input.InterestAmount.IsNegative() {
		return nil, domain.ErrPaymentSplitInvalid
	}
	if input.PaymentMethod == "" {
		return nil, domain.ErrPaymentMethodRequired
	}

	var payment *domain.FinancingPayment
	var settled bool
	var accountBalance decimal.Decimal

	err := s.txManager.WithinTx(ctx, func(tx interface{}) error {
		financing, err := s.financingRepo.GetByIDForUpdateTx(tx, workspaceID, input.FinancingID)
		if err != nil {
			return err
		}
		account, err := s.accountRepo.GetByIDForUpdateTx(tx, workspaceID, input.AccountID)
		if err != nil {
			return err
		}

		if input.InstallmentNumber != nil {
			_, err := s.paymentRepo.GetByInstallmentTx(tx, financing.ID, *input.InstallmentNumber)
			if err == nil {
				return domain.ErrDuplicateInstallment
			}
			if err != domain.ErrPaymentNotFound {
				return err
			}
		}

		balanceBefore := financing.CurrentBalance
		balanceAfter := balanceBefore.Sub(input.PrincipalAmount)
		if balanceAfter.IsNegative() {
			if balanceAfter.Abs().GreaterThan(negativeBalanceTolerance) {
				return domain.ErrNegativeBalance
			}
			balanceAfter = decimal.Zero
		}

		category, err := s.categoryRepo.FindDefaultExpenseTx(tx, workspaceID)
		if err != nil {
			return err
		}
		if category == nil {
			return domain.ErrNoExpenseCategory
		}

		transaction, err := s.transactionRepo.CreateTx(tx, &domain.Transaction{
			WorkspaceID:     workspaceID,
			AccountID:       account.ID,
			CategoryID:      category.ID,
			Description:     paymentDescription(financing, input),
			Amount:          input.PaymentAmount,
			Direction:       domain.TransactionDirectionExpense,
			TransactionDate: input.PaymentDate,
			PaymentMethod:   input.PaymentMethod,
		})
		if err != nil {
			return err
		}

		payment, err = s.paymentRepo.CreateTx(tx, &domain.FinancingPayment{
			FinancingID:       financing.ID,
			AccountID:         account.ID,
			InstallmentNumber: input.InstallmentNumber,
			PaymentAmount:     input.PaymentAmount,
			PrincipalAmount:   input.PrincipalAmount,
			InterestAmount:    input.InterestAmount,
			PaymentDate:       input.PaymentDate,
			PaymentMethod:     input.PaymentMethod,
			PaymentType:       input.PaymentType,
			EarlyPreference:   input.EarlyPreference,
			BalanceBefore:     balanceBefore,
			BalanceAfter:      balanceAfter,
			TransactionID:     &transaction.ID,
		})
		if err != nil {
			return err
		}

		accountBalance = account.Balance.Sub(input.PaymentAmount)
		if err := s.accountRepo.DebitTx(tx, workspaceID, account.ID, input.PaymentAmount); err != nil {
			return err
		}

		payments, err := s.paymentRepo.GetByFinancingTx(tx, financing.ID)
		if err != nil {
			return err
		}
		aggregates := ProjectBalance(financing.Principal, financing.TermPeriods, payments)
		settled = aggregates.Status == domain.FinancingStatusSettled && financing.Status != domain.FinancingStatusSettled
		return s.financingRepo.UpdateAggregatesTx(tx, financing.ID, aggregates)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("financing_id", input.FinancingID).
		Str("amount", input.PaymentAmount.StringFixed(2)).
		Str("type", string(input.PaymentType)).
		Msg("Financing payment applied")

	s.publishEvent(workspaceID, websocket.FinancingPaymentRecorded(map[string]interface{}{
		"financingId":   payment.FinancingID,
		"paymentId":     payment.ID,
		"accountId":     payment.AccountID,
		"paymentAmount": payment.PaymentAmount.StringFixed(2),
		"balanceAfter":  payment.BalanceAfter.StringFixed(2),
		"paymentType":   string(payment.PaymentType),
	}))
	s.publishEvent(workspaceID, websocket.AccountBalanceUpdated(map[string]interface{}{
		"accountId": payment.AccountID,
		"balance":   accountBalance.StringFixed(2),
	}))
	if settled {
		s.publishEvent(workspaceID, websocket.FinancingSettled(map[string]interface{}{
			"financingId": payment.FinancingID,
		}))
	}

	return payment, nil
}

// PayInstallmentInput identifies one scheduled installment and the amount
// actually handed over.
type PayInstallmentInput struct {
	FinancingID       int32
	InstallmentNumber int32
	AccountID         int32
	PaidAmount        decimal.Decimal
	PaymentDate       time.Time
	PaymentMethod     string
}

// PayInstallment resolves the principal/interest split for the requested
// installment from the theoretical schedule and delegates to ApplyPayment.
// Paying more than the scheduled amount classifies the payment as partial.
func (s *PaymentService) PayInstallment(ctx context.Context, workspaceID int32, input PayInstallmentInput) (*domain.FinancingPayment, error) {
	financing, err := s.financingRepo.GetByID(workspaceID, input.FinancingID)
	if err != nil {
		return nil, err
	}

	schedule, err := GenerateSchedule(ScheduleInputFromFinancing(financing))
	if err != nil {
		return nil, err
	}
	if input.InstallmentNumber < 1 || int(input.InstallmentNumber) > len(schedule) {
		return nil, domain.ErrInstallmentNotFound
	}
	row := schedule[input.InstallmentNumber-1]

	if input.PaidAmount.LessThan(row.PaymentAmount) {
		return nil, domain.ErrInsufficientAmount
	}

	paymentType := domain.PaymentTypeInstallment
	if input.PaidAmount.GreaterThan(row.PaymentAmount) {
		paymentType = domain.PaymentTypePartial
	}

	installmentNumber := input.InstallmentNumber
	return s.ApplyPayment(ctx, workspaceID, ApplyPaymentInput{
		FinancingID:       input.FinancingID,
		AccountID:         input.AccountID,
		InstallmentNumber: &installmentNumber,
		PaymentAmount:     input.PaidAmount,
		PrincipalAmount:   row.PrincipalAmount,
		InterestAmount:    row.InterestAmount,
		PaymentDate:       input.PaymentDate,
		PaymentMethod:     input.PaymentMethod,
		PaymentType:       paymentType,
	})
}

// EarlyPaymentInput carries an extraordinary payment applied entirely to
// principal.
type EarlyPaymentInput struct {
	FinancingID   int32
	AccountID     int32
	PaidAmount    decimal.Decimal
	PaymentDate   time.Time
	PaymentMethod string
	Preference    domain.EarlyPaymentPreference
}

// RegisterEarlyPayment applies an extraordinary principal payment. The true
// outstanding balance is recomputed from the payment history rather than read
// from the cached column, and the amount must stay strictly below it: a full
// payoff is a different operation. The payment is stored without an
// installment number.
func (s *PaymentService) RegisterEarlyPayment(ctx context.Context, workspaceID int32, input EarlyPaymentInput) (*domain.FinancingPayment, error) {
	if input.PaidAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrPaymentAmountInvalid
	}
	switch input.Preference {
	case domain.PreferenceShortenTerm, domain.PreferenceReduceInstallment:
	default:
		return nil, domain.ErrPreferenceInvalid
	}

	financing, err := s.financingRepo.GetByID(workspaceID, input.FinancingID)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.GetByFinancing(financing.ID)
	if err != nil {
		return nil, err
	}
	projection := ProjectBalance(financing.Principal, financing.TermPeriods, payments)

	if input.PaidAmount.GreaterThanOrEqual(projection.CurrentBalance) {
		return nil, domain.ErrExceedsOutstandingBalance
	}

	preference := input.Preference
	return s.ApplyPayment(ctx, workspaceID, ApplyPaymentInput{
		FinancingID:     input.FinancingID,
		AccountID:       input.AccountID,
		PaymentAmount:   input.PaidAmount,
		PrincipalAmount: input.PaidAmount,
		InterestAmount:  decimal.Zero,
		PaymentDate:     input.PaymentDate,
		PaymentMethod:   input.PaymentMethod,
		PaymentType:     domain.PaymentTypeEarly,
		EarlyPreference: &preference,
	})
}

// UpdateObservation changes the free-text annotation on a payment. This is the
// only field besides the receipt key that remains mutable after creation.
func (s *PaymentService) UpdateObservation(workspaceID int32, financingID int32, paymentID int32, observation *string) (*domain.FinancingPayment, error) {
	payment, err := s.paymentRepo.GetByID(workspaceID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.FinancingID != financingID {
		return nil, domain.ErrPaymentNotFound
	}
	return s.paymentRepo.UpdateObservation(workspaceID, paymentID, observation)
}

// DeletePayment removes a payment row that never moved money. A payment linked
// to a ledger transaction is immutable; deleting it would silently corrupt the
// ledger.
func (s *PaymentService) DeletePayment(workspaceID int32, financingID int32, paymentID int32) error {
	payment, err := s.paymentRepo.GetByID(workspaceID, paymentID)
	if err != nil {
		return err
	}
	if payment.FinancingID != financingID {
		return domain.ErrPaymentNotFound
	}
	if payment.TransactionID != nil {
		return domain.ErrLinkedTransactionExists
	}
	return s.paymentRepo.Delete(workspaceID, paymentID)
}

// GetPaymentsByFinancing retrieves all payments for a financing, validating
// workspace ownership.
func (s *PaymentService) GetPaymentsByFinancing(workspaceID int32, financingID int32) ([]*domain.FinancingPayment, error) {
	if _, err := s.financingRepo.GetByID(workspaceID, financingID); err != nil {
		return nil, err
	}
	return s.paymentRepo.GetByFinancing(financingID)
}

func paymentDescription(financing *domain.Financing, input ApplyPaymentInput) string {
	if input.InstallmentNumber != nil {
		return fmt.Sprintf("%s - installment %d/%d", financing.Name, *input.InstallmentNumber, financing.TermPeriods)
	}
	return fmt.Sprintf("%s - early payment", financing.Name)
}
