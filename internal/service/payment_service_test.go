package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/jpmelo/financio-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	svc             *PaymentService
	txManager       *testutil.MockTxManager
	financingRepo   *testutil.MockFinancingRepository
	accountRepo     *testutil.MockAccountRepository
	paymentRepo     *testutil.MockFinancingPaymentRepository
	transactionRepo *testutil.MockTransactionRepository
	categoryRepo    *testutil.MockCategoryRepository
	publisher       *testutil.RecordingPublisher
	financing       *domain.Financing
	account         *domain.Account
}

// newPaymentFixture sets up a workspace with one financing (12000 at 1%
// monthly over 12 periods, Price), one funded account and a default expense
// category.
func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	f := &paymentFixture{
		txManager:       testutil.NewMockTxManager(),
		financingRepo:   testutil.NewMockFinancingRepository(),
		accountRepo:     testutil.NewMockAccountRepository(),
		paymentRepo:     testutil.NewMockFinancingPaymentRepository(),
		transactionRepo: testutil.NewMockTransactionRepository(),
		categoryRepo:    testutil.NewMockCategoryRepository(),
		publisher:       &testutil.RecordingPublisher{},
	}

	var err error
	f.financing, err = f.financingRepo.Create(&domain.Financing{
		WorkspaceID:    1,
		Name:           "Car financing",
		Principal:      dec("12000"),
		PeriodicRate:   dec("0.01"),
		TermPeriods:    12,
		Method:         domain.MethodPrice,
		StartDate:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		CurrentBalance: dec("12000"),
		Status:         domain.FinancingStatusActive,
	})
	require.NoError(t, err)
	f.paymentRepo.WorkspaceByFinancing[f.financing.ID] = 1

	f.account, err = f.accountRepo.Create(&domain.Account{
		WorkspaceID: 1,
		Name:        "Checking",
		Balance:     dec("5000"),
	})
	require.NoError(t, err)

	f.categoryRepo.Categories[1] = &domain.Category{
		ID:          1,
		WorkspaceID: 1,
		Name:        "Financing",
		Kind:        domain.CategoryKindExpense,
		IsDefault:   true,
	}

	f.svc = NewPaymentService(f.txManager, f.financingRepo, f.accountRepo, f.paymentRepo, f.transactionRepo, f.categoryRepo)
	f.svc.SetEventPublisher(f.publisher)
	return f
}

func (f *paymentFixture) payInstallment(t *testing.T, number int32, amount string) *domain.FinancingPayment {
	t.Helper()
	payment, err := f.svc.PayInstallment(context.Background(), 1, PayInstallmentInput{
		FinancingID:       f.financing.ID,
		InstallmentNumber: number,
		AccountID:         f.account.ID,
		PaidAmount:        dec(amount),
		PaymentDate:       time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		PaymentMethod:     "pix",
	})
	require.NoError(t, err)
	return payment
}

func TestPayInstallment_Success(t *testing.T) {
	f := newPaymentFixture(t)

	payment := f.payInstallment(t, 1, "1066.19")

	require.NotNil(t, payment.InstallmentNumber)
	assert.Equal(t, int32(1), *payment.InstallmentNumber)
	assert.Equal(t, domain.PaymentTypeInstallment, payment.PaymentType)
	assert.Equal(t, "1066.19", payment.PaymentAmount.StringFixed(2))
	assert.Equal(t, "946.19", payment.PrincipalAmount.StringFixed(2))
	assert.Equal(t, "120.00", payment.InterestAmount.StringFixed(2))
	assert.Equal(t, "12000.00", payment.BalanceBefore.StringFixed(2))
	assert.Equal(t, "11053.81", payment.BalanceAfter.StringFixed(2))
	require.NotNil(t, payment.TransactionID)

	// Ledger transaction landed with the payment amount as an expense.
	transaction := f.transactionRepo.Transactions[*payment.TransactionID]
	require.NotNil(t, transaction)
	assert.Equal(t, domain.TransactionDirectionExpense, transaction.Direction)
	assert.Equal(t, "1066.19", transaction.Amount.StringFixed(2))
	assert.Equal(t, int32(1), transaction.CategoryID)

	// Account balance debited.
	assert.Equal(t, "3933.81", f.account.Balance.StringFixed(2))

	// Cached aggregates refreshed from the payment history.
	assert.Equal(t, "11053.81", f.financing.CurrentBalance.StringFixed(2))
	assert.Equal(t, "1066.19", f.financing.TotalPaid.StringFixed(2))
	assert.Equal(t, "120.00", f.financing.TotalInterestPaid.StringFixed(2))
	assert.Equal(t, int32(1), f.financing.PaidInstallments)
	assert.Equal(t, domain.FinancingStatusActive, f.financing.Status)

	assert.Equal(t, 1, f.txManager.Committed)
	assert.Equal(t, []string{"financing.payment.recorded", "account.balance.updated"}, f.publisher.EventTypes())
}

func TestPayInstallment_OverpaymentIsPartial(t *testing.T) {
	f := newPaymentFixture(t)

	payment := f.payInstallment(t, 1, "1500.00")

	assert.Equal(t, domain.PaymentTypePartial, payment.PaymentType)
	assert.Equal(t, "1500.00", payment.PaymentAmount.StringFixed(2))
	// Split still follows the schedule row; the excess is not amortized.
	assert.Equal(t, "946.19", payment.PrincipalAmount.StringFixed(2))
	assert.Equal(t, "120.00", payment.InterestAmount.StringFixed(2))
	assert.Equal(t, "3500.00", f.account.Balance.StringFixed(2))
}

func TestPayInstallment_BelowScheduledAmount(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.PayInstallment(context.Background(), 1, PayInstallmentInput{
		FinancingID:       f.financing.ID,
		InstallmentNumber: 1,
		AccountID:         f.account.ID,
		PaidAmount:        dec("1000"),
		PaymentDate:       time.Now(),
		PaymentMethod:     "pix",
	})
	assert.Equal(t, domain.ErrInsufficientAmount, err)
	assert.Equal(t, 0, f.txManager.Calls)
}

func TestPayInstallment_DuplicateInstallment(t *testing.T) {
	f := newPaymentFixture(t)
	f.payInstallment(t, 1, "1066.19")

	transactionsBefore := len(f.transactionRepo.Transactions)
	balanceBefore := f.account.Balance

	_, err := f.svc.PayInstallment(context.Background(), 1, PayInstallmentInput{
		FinancingID:       f.financing.ID,
		InstallmentNumber: 1,
		AccountID:         f.account.ID,
		PaidAmount:        dec("1066.19"),
		PaymentDate:       time.Now(),
		PaymentMethod:     "pix",
	})
	assert.Equal(t, domain.ErrDuplicateInstallment, err)
	assert.Equal(t, 1, f.txManager.RolledBack)

	// Nothing from the rejected payment leaked out.
	assert.Len(t, f.transactionRepo.Transactions, transactionsBefore)
	assert.True(t, f.account.Balance.Equal(balanceBefore))
	assert.Equal(t, int32(1), f.financing.PaidInstallments)
}

func TestPayInstallment_InstallmentOutOfRange(t *testing.T) {
	f := newPaymentFixture(t)

	for _, number := range []int32{0, 13, -1} {
		_, err := f.svc.PayInstallment(context.Background(), 1, PayInstallmentInput{
			FinancingID:       f.financing.ID,
			InstallmentNumber: number,
			AccountID:         f.account.ID,
			PaidAmount:        dec("1066.19"),
			PaymentDate:       time.Now(),
			PaymentMethod:     "pix",
		})
		assert.Equal(t, domain.ErrInstallmentNotFound, err, "installment %d", number)
	}
}

func TestPayInstallment_FinancingNotFound(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.PayInstallment(context.Background(), 1, PayInstallmentInput{
		FinancingID:       999,
		InstallmentNumber: 1,
		AccountID:         f.account.ID,
		PaidAmount:        dec("1066.19"),
		PaymentDate:       time.Now(),
		PaymentMethod:     "pix",
	})
	assert.Equal(t, domain.ErrFinancingNotFound, err)
}

func TestPayInstallment_WrongWorkspace(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.PayInstallment(context.Background(), 2, PayInstallmentInput{
		FinancingID:       f.financing.ID,
		InstallmentNumber: 1,
		AccountID:         f.account.ID,
		PaidAmount:        dec("1066.19"),
		PaymentDate:       time.Now(),
		PaymentMethod:     "pix",
	})
	assert.Equal(t, domain.ErrFinancingNotFound, err)
}

func TestApplyPayment_AccountNotFound(t *testing.T) {
	f := newPaymentFixture(t)

	installment := int32(1)
	_, err := f.svc.ApplyPayment(context.Background(), 1, ApplyPaymentInput{
		FinancingID:       f.financing.ID,
		AccountID:         999,
		InstallmentNumber: &installment,
		PaymentAmount:     dec("1066.19"),
		PrincipalAmount:   dec("946.19"),
		InterestAmount:    dec("120.00"),
		PaymentDate:       time.Now(),
		PaymentMethod:     "pix",
		PaymentType:       domain.PaymentTypeInstallment,
	})
	assert.Equal(t, domain.ErrAccountNotFound, err)
	assert.Equal(t, 1, f.txManager.RolledBack)
}

func TestApplyPayment_NoDefaultExpenseCategory(t *testing.T) {
	f := newPaymentFixture(t)
	f.categoryRepo.Categories = map[int32]*domain.Category{}

	installment := int32(1)
	_, err := f.svc.ApplyPayment(context.Background(), 1, ApplyPaymentInput{
		FinancingID:       f.financing.ID,
		AccountID:         f.account.ID,
		InstallmentNumber: &installment,
		PaymentAmount:     dec("1066.19"),
		PrincipalAmount:   dec("946.19"),
		InterestAmount:    dec("120.00"),
		PaymentDate:       time.Now(),
		PaymentMethod:     "pix",
		PaymentType:       domain.PaymentTypeInstallment,
	})
	assert.Equal(t, domain.ErrNoExpenseCategory, err)
	assert.Equal(t, 1, f.txManager.RolledBack)
	assert.Empty(t, f.transactionRepo.Transactions)
}

func TestApplyPayment_RollsBackWhenDebitFails(t *testing.T) {
	f := newPaymentFixture(t)
	debitErr := errors.New("debit failed")
	f.accountRepo.DebitErr = debitErr

	installment := int32(1)
	_, err := f.svc.ApplyPayment(context.Background(), 1, ApplyPaymentInput{
		FinancingID:       f.financing.ID,
		AccountID:         f.account.ID,
		InstallmentNumber: &installment,
		PaymentAmount:     dec("1066.19"),
		PrincipalAmount:   dec("946.19"),
		InterestAmount:    dec("120.00"),
		PaymentDate:       time.Now(),
		PaymentMethod:     "pix",
		PaymentType:       domain.PaymentTypeInstallment,
	})
	assert.Equal(t, debitErr, err)
	assert.Equal(t, 1, f.txManager.RolledBack)
	assert.Equal(t, 0, f.txManager.Committed)
	assert.Empty(t, f.publisher.Events)
}

func TestApplyPayment_NegativeBalanceRejected(t *testing.T) {
	f := newPaymentFixture(t)

	// Principal portion exceeds the outstanding balance by more than the
	// rounding tolerance.
	_, err := f.svc.ApplyPayment(context.Background(), 1, ApplyPaymentInput{
		FinancingID:     f.financing.ID,
		AccountID:       f.account.ID,
		PaymentAmount:   dec("12010"),
		PrincipalAmount: dec("12010"),
		InterestAmount:  decimal.Zero,
		PaymentDate:     time.Now(),
		PaymentMethod:   "pix",
		PaymentType:     domain.PaymentTypeEarly,
	})
	assert.Equal(t, domain.ErrNegativeBalance, err)
	assert.Equal(t, 1, f.txManager.RolledBack)
}

func TestApplyPayment_ToleranceClampsToZero(t *testing.T) {
	f := newPaymentFixture(t)

	// A residue of 3 cents is within tolerance and clamps the balance to
	// exactly zero.
	payment, err := f.svc.ApplyPayment(context.Background(), 1, ApplyPaymentInput{
		FinancingID:     f.financing.ID,
		AccountID:       f.account.ID,
		PaymentAmount:   dec("12000.03"),
		PrincipalAmount: dec("12000.03"),
		InterestAmount:  decimal.Zero,
		PaymentDate:     time.Now(),
		PaymentMethod:   "pix",
		PaymentType:     domain.PaymentTypeEarly,
	})
	require.NoError(t, err)
	assert.True(t, payment.BalanceAfter.IsZero())
}

func TestApplyPayment_ValidationErrors(t *testing.T) {
	f := newPaymentFixture(t)

	base := ApplyPaymentInput{
		FinancingID:     f.financing.ID,
		AccountID:       f.account.ID,
		PaymentAmount:   dec("100"),
		PrincipalAmount: dec("90"),
		InterestAmount:  dec("10"),
		PaymentDate:     time.Now(),
		PaymentMethod:   "pix",
		PaymentType:     domain.PaymentTypeInstallment,
	}

	in := base
	in.PaymentAmount = decimal.Zero
	_, err := f.svc.ApplyPayment(context.Background(), 1, in)
	assert.Equal(t, domain.ErrPaymentAmountInvalid, err)

	in = base
	in.PrincipalAmount = dec("-1")
	_, err = f.svc.ApplyPayment(context.Background(), 1, in)
	assert.Equal(t, domain.ErrPaymentSplitInvalid, err)

	in = base
	in.PaymentMethod = ""
	_, err = f.svc.ApplyPayment(context.Background(), 1, in)
	assert.Equal(t, domain.ErrPaymentMethodRequired, err)

	// None of the rejected inputs opened a transaction.
	assert.Equal(t, 0, f.txManager.Calls)
}

func TestPayInstallment_SettlesFinancing(t *testing.T) {
	f := newPaymentFixture(t)
	f.financing.TermPeriods = 1
	f.account.Balance = dec("20000")

	payment := f.payInstallment(t, 1, "12120.00")

	assert.True(t, payment.BalanceAfter.IsZero())
	assert.Equal(t, domain.FinancingStatusSettled, f.financing.Status)
	assert.Equal(t, []string{"financing.payment.recorded", "account.balance.updated", "financing.settled"}, f.publisher.EventTypes())
}

func TestRegisterEarlyPayment_Success(t *testing.T) {
	f := newPaymentFixture(t)
	f.payInstallment(t, 1, "1066.19")

	payment, err := f.svc.RegisterEarlyPayment(context.Background(), 1, EarlyPaymentInput{
		FinancingID:   f.financing.ID,
		AccountID:     f.account.ID,
		PaidAmount:    dec("2000"),
		PaymentDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PaymentMethod: "transfer",
		Preference:    domain.PreferenceShortenTerm,
	})
	require.NoError(t, err)

	assert.Nil(t, payment.InstallmentNumber)
	assert.Equal(t, domain.PaymentTypeEarly, payment.PaymentType)
	assert.True(t, payment.InterestAmount.IsZero())
	assert.Equal(t, "2000.00", payment.PrincipalAmount.StringFixed(2))
	require.NotNil(t, payment.EarlyPreference)
	assert.Equal(t, domain.PreferenceShortenTerm, *payment.EarlyPreference)
	assert.Equal(t, "9053.81", payment.BalanceAfter.StringFixed(2))
	assert.Equal(t, "9053.81", f.financing.CurrentBalance.StringFixed(2))
}

func TestRegisterEarlyPayment_ExceedsOutstandingBalance(t *testing.T) {
	f := newPaymentFixture(t)
	f.payInstallment(t, 1, "1066.19")

	// Outstanding balance is 11053.81; an early payment must stay strictly
	// below it.
	for _, amount := range []string{"11053.81", "12000"} {
		_, err := f.svc.RegisterEarlyPayment(context.Background(), 1, EarlyPaymentInput{
			FinancingID:   f.financing.ID,
			AccountID:     f.account.ID,
			PaidAmount:    dec(amount),
			PaymentDate:   time.Now(),
			PaymentMethod: "transfer",
			Preference:    domain.PreferenceReduceInstallment,
		})
		assert.Equal(t, domain.ErrExceedsOutstandingBalance, err, amount)
	}
}

func TestRegisterEarlyPayment_InvalidInputs(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.RegisterEarlyPayment(context.Background(), 1, EarlyPaymentInput{
		FinancingID:   f.financing.ID,
		AccountID:     f.account.ID,
		PaidAmount:    decimal.Zero,
		PaymentMethod: "transfer",
		Preference:    domain.PreferenceShortenTerm,
	})
	assert.Equal(t, domain.ErrPaymentAmountInvalid, err)

	_, err = f.svc.RegisterEarlyPayment(context.Background(), 1, EarlyPaymentInput{
		FinancingID:   f.financing.ID,
		AccountID:     f.account.ID,
		PaidAmount:    dec("100"),
		PaymentMethod: "transfer",
		Preference:    domain.EarlyPaymentPreference("skip_interest"),
	})
	assert.Equal(t, domain.ErrPreferenceInvalid, err)
}

func TestUpdateObservation(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.payInstallment(t, 1, "1066.19")

	note := "paid at the branch"
	updated, err := f.svc.UpdateObservation(1, f.financing.ID, payment.ID, &note)
	require.NoError(t, err)
	require.NotNil(t, updated.Observation)
	assert.Equal(t, note, *updated.Observation)

	// Financing mismatch hides the payment.
	_, err = f.svc.UpdateObservation(1, 999, payment.ID, &note)
	assert.Equal(t, domain.ErrPaymentNotFound, err)
}

func TestDeletePayment_LinkedTransaction(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.payInstallment(t, 1, "1066.19")

	err := f.svc.DeletePayment(1, f.financing.ID, payment.ID)
	assert.Equal(t, domain.ErrLinkedTransactionExists, err)
	assert.Len(t, f.paymentRepo.Payments, 1)
}

func TestDeletePayment_Unlinked(t *testing.T) {
	f := newPaymentFixture(t)

	// A payment imported without a ledger transaction can be removed.
	installment := int32(3)
	payment, err := f.paymentRepo.CreateTx(&testutil.MockTx{}, &domain.FinancingPayment{
		FinancingID:       f.financing.ID,
		AccountID:         f.account.ID,
		InstallmentNumber: &installment,
		PaymentAmount:     dec("1066.19"),
		PrincipalAmount:   dec("946.19"),
		InterestAmount:    dec("120.00"),
		PaymentDate:       time.Now(),
		PaymentMethod:     "pix",
		PaymentType:       domain.PaymentTypeInstallment,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePayment(1, f.financing.ID, payment.ID))
	assert.Empty(t, f.paymentRepo.Payments)
}

func TestGetPaymentsByFinancing(t *testing.T) {
	f := newPaymentFixture(t)
	f.payInstallment(t, 1, "1066.19")
	f.payInstallment(t, 2, "1066.19")

	payments, err := f.svc.GetPaymentsByFinancing(1, f.financing.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	_, err = f.svc.GetPaymentsByFinancing(2, f.financing.ID)
	assert.Equal(t, domain.ErrFinancingNotFound, err)
}
