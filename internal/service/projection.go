package service

import (
	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ProjectBalance derives the financing aggregates from the committed payment
// history. It is the single source of truth for the cached columns on a
// financing row: the orchestrator calls it after every payment, and the early
// payment flow calls it instead of trusting the cache.
//
// The outstanding balance amortizes exactly the recorded principal portions;
// the interest portion of each payment never reduces the debt.
func ProjectBalance(principal decimal.Decimal, termPeriods int32, payments []*domain.FinancingPayment) domain.FinancingAggregates {
	totalPaid := decimal.Zero
	totalInterest := decimal.Zero
	totalPrincipal := decimal.Zero
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.PaymentAmount)
		totalInterest = totalInterest.Add(p.InterestAmount)
		totalPrincipal = totalPrincipal.Add(p.PrincipalAmount)
	}

	balance := principal.Sub(totalPrincipal)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	status := domain.FinancingStatusActive
	if int32(len(payments)) >= termPeriods {
		status = domain.FinancingStatusSettled
	}

	return domain.FinancingAggregates{
		CurrentBalance:    balance,
		TotalPaid:         totalPaid,
		TotalInterestPaid: totalInterest,
		PaidInstallments:  int32(len(payments)),
		Status:            status,
	}
}
