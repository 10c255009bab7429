package service

import (
	"testing"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func paymentRow(payment, principal, interest string, installment int32) *domain.FinancingPayment {
	n := installment
	return &domain.FinancingPayment{
		InstallmentNumber: &n,
		PaymentAmount:     dec(payment),
		PrincipalAmount:   dec(principal),
		InterestAmount:    dec(interest),
	}
}

func TestProjectBalance_NoPayments(t *testing.T) {
	aggregates := ProjectBalance(dec("12000"), 12, nil)

	assert.Equal(t, "12000.00", aggregates.CurrentBalance.StringFixed(2))
	assert.True(t, aggregates.TotalPaid.IsZero())
	assert.True(t, aggregates.TotalInterestPaid.IsZero())
	assert.Equal(t, int32(0), aggregates.PaidInstallments)
	assert.Equal(t, domain.FinancingStatusActive, aggregates.Status)
}

func TestProjectBalance_SumsPaymentHistory(t *testing.T) {
	payments := []*domain.FinancingPayment{
		paymentRow("1066.19", "946.19", "120.00", 1),
		paymentRow("1066.19", "955.65", "110.54", 2),
	}

	aggregates := ProjectBalance(dec("12000"), 12, payments)

	assert.Equal(t, "10098.16", aggregates.CurrentBalance.StringFixed(2))
	assert.Equal(t, "2132.38", aggregates.TotalPaid.StringFixed(2))
	assert.Equal(t, "230.54", aggregates.TotalInterestPaid.StringFixed(2))
	assert.Equal(t, int32(2), aggregates.PaidInstallments)
	assert.Equal(t, domain.FinancingStatusActive, aggregates.Status)
}

func TestProjectBalance_EarlyPaymentAllPrincipal(t *testing.T) {
	payments := []*domain.FinancingPayment{
		paymentRow("1066.19", "946.19", "120.00", 1),
		{
			PaymentAmount:   dec("2000"),
			PrincipalAmount: dec("2000"),
			InterestAmount:  decimal.Zero,
		},
	}

	aggregates := ProjectBalance(dec("12000"), 12, payments)

	assert.Equal(t, "9053.81", aggregates.CurrentBalance.StringFixed(2))
	assert.Equal(t, "3066.19", aggregates.TotalPaid.StringFixed(2))
	assert.Equal(t, int32(2), aggregates.PaidInstallments)
}

func TestProjectBalance_ClampsNegativeToZero(t *testing.T) {
	payments := []*domain.FinancingPayment{
		paymentRow("100.03", "100.03", "0.00", 1),
	}

	aggregates := ProjectBalance(dec("100"), 1, payments)

	assert.True(t, aggregates.CurrentBalance.IsZero())
	assert.Equal(t, domain.FinancingStatusSettled, aggregates.Status)
}

func TestProjectBalance_SettledWhenAllPeriodsCovered(t *testing.T) {
	payments := []*domain.FinancingPayment{
		paymentRow("50.50", "50.00", "0.50", 1),
		paymentRow("50.50", "50.00", "0.50", 2),
	}

	aggregates := ProjectBalance(dec("100"), 2, payments)

	assert.True(t, aggregates.CurrentBalance.IsZero())
	assert.Equal(t, int32(2), aggregates.PaidInstallments)
	assert.Equal(t, domain.FinancingStatusSettled, aggregates.Status)
}
