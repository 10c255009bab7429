package service

import (
	"time"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ScheduleInput holds the financing parameters a repayment schedule is
// generated from.
type ScheduleInput struct {
	Principal    decimal.Decimal
	PeriodicRate decimal.Decimal // per-period fraction, e.g. 0.01 = 1% monthly
	TermPeriods  int32
	Method       domain.AmortizationMethod
	StartDate    time.Time
}

// ScheduleRow is one installment of the theoretical repayment schedule.
type ScheduleRow struct {
	InstallmentNumber int32           `json:"installmentNumber"`
	DueDate           time.Time       `json:"dueDate"`
	PaymentAmount     decimal.Decimal `json:"paymentAmount"`
	PrincipalAmount   decimal.Decimal `json:"principalAmount"`
	InterestAmount    decimal.Decimal `json:"interestAmount"`
	RemainingBalance  decimal.Decimal `json:"remainingBalance"`
}

var one = decimal.NewFromInt(1)

// GenerateSchedule produces the full theoretical schedule for the given
// parameters. It is pure: same inputs always produce the same table.
//
// Price keeps the total installment constant (annuity formula); SAC keeps the
// amortization portion constant so the installment shrinks as interest
// declines. In both methods the final row's principal absorbs the accumulated
// rounding residue so the remaining balance lands on exactly zero.
func GenerateSchedule(in ScheduleInput) ([]ScheduleRow, error) {
	if in.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrFinancingPrincipalInvalid
	}
	if in.PeriodicRate.IsNegative() {
		return nil, domain.ErrFinancingRateInvalid
	}
	if in.TermPeriods < 1 {
		return nil, domain.ErrFinancingTermInvalid
	}

	switch in.Method {
	case domain.MethodPrice:
		return priceSchedule(in), nil
	case domain.MethodSAC:
		return sacSchedule(in), nil
	default:
		return nil, domain.ErrFinancingMethodInvalid
	}
}

// priceSchedule computes the constant installment as
// principal * rate * (1+rate)^term / ((1+rate)^term - 1), which is the
// annuity formula rearranged to avoid a negative exponent.
func priceSchedule(in ScheduleInput) []ScheduleRow {
	n := in.TermPeriods
	rate := in.PeriodicRate

	var installment decimal.Decimal
	if rate.IsZero() {
		installment = in.Principal.Div(decimal.NewFromInt32(n)).Round(2)
	} else {
		compound := one.Add(rate).Pow(decimal.NewFromInt32(n))
		installment = in.Principal.Mul(rate).Mul(compound).Div(compound.Sub(one)).Round(2)
	}

	rows := make([]ScheduleRow, 0, n)
	remaining := in.Principal
	for m := int32(1); m <= n; m++ {
		interest := remaining.Mul(rate).Round(2)
		principal := installment.Sub(interest)
		payment := installment
		if m == n {
			// Final row absorbs the rounding residue.
			principal = remaining
			payment = principal.Add(interest)
		}
		remaining = remaining.Sub(principal)

		rows = append(rows, ScheduleRow{
			InstallmentNumber: m,
			DueDate:           in.StartDate.AddDate(0, int(m), 0),
			PaymentAmount:     payment,
			PrincipalAmount:   principal,
			InterestAmount:    interest,
			RemainingBalance:  remaining,
		})
	}
	return rows
}

func sacSchedule(in ScheduleInput) []ScheduleRow {
	n := in.TermPeriods
	rate := in.PeriodicRate
	basePrincipal := in.Principal.Div(decimal.NewFromInt32(n)).Round(2)

	rows := make([]ScheduleRow, 0, n)
	remaining := in.Principal
	for m := int32(1); m <= n; m++ {
		interest := remaining.Mul(rate).Round(2)
		principal := basePrincipal
		if m == n {
			principal = remaining
		}
		payment := principal.Add(interest)
		remaining = remaining.Sub(principal)

		rows = append(rows, ScheduleRow{
			InstallmentNumber: m,
			DueDate:           in.StartDate.AddDate(0, int(m), 0),
			PaymentAmount:     payment,
			PrincipalAmount:   principal,
			InterestAmount:    interest,
			RemainingBalance:  remaining,
		})
	}
	return rows
}

// ScheduleInputFromFinancing maps a stored financing onto schedule parameters.
func ScheduleInputFromFinancing(f *domain.Financing) ScheduleInput {
	return ScheduleInput{
		Principal:    f.Principal,
		PeriodicRate: f.PeriodicRate,
		TermPeriods:  f.TermPeriods,
		Method:       f.Method,
		StartDate:    f.StartDate,
	}
}
