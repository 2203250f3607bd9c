package rules

import "github.com/shopspring/decimal"

// MonthlyInstallment computes the level payment for a loan using standard
// amortization. Principal and the result are cents; the rate is the annual
// percentage. A zero rate degenerates to principal over term.
func MonthlyInstallment(principal int64, annualRatePct float64, termMonths int) int64 {
	if principal <= 0 || termMonths <= 0 {
		return 0
	}

	p := decimal.NewFromInt(principal)
	n := decimal.NewFromInt(int64(termMonths))

	if annualRatePct <= 0 {
		return p.Div(n).Round(0).IntPart()
	}

	r := decimal.NewFromFloat(annualRatePct).
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(12))

	// P*r*(1+r)^n / ((1+r)^n - 1)
	factor := decimal.NewFromInt(1).Add(r).Pow(n)
	installment := p.Mul(r).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1)))
	return installment.Round(0).IntPart()
}

// MonthsRemaining is how many installments are left to clear a balance,
// rounding partial months up.
func MonthsRemaining(remaining, installment int64) int {
	if remaining <= 0 || installment <= 0 {
		return 0
	}
	return int((remaining + installment - 1) / installment)
}
