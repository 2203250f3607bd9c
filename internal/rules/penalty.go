package rules

import (
	"time"

	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/shopspring/decimal"
)

// ComputePenalty charges lateness on a contribution. The assessed date is
// whichever date the policy's basis selected; the due date is the policy's
// due day within that same month, pushed out by the grace period. Anything
// at or before the cutoff, before the penalty scheme's first year, or with
// nonsensical inputs costs nothing.
func ComputePenalty(assessed time.Time, p domain.Policy, amount int64) int64 {
	if amount <= 0 || p.PenaltyRate <= 0 {
		return 0
	}
	if assessed.Year() < p.PenaltyYear {
		return 0
	}

	due := time.Date(assessed.Year(), assessed.Month(), p.DueDay, 0, 0, 0, 0, time.UTC)
	cutoff := due.AddDate(0, 0, p.GraceDays)

	daysLate := int64(dayOf(assessed).Sub(cutoff).Hours() / 24)
	if daysLate <= 0 {
		return 0
	}

	days := decimal.NewFromInt(daysLate)
	rate := decimal.NewFromFloat(p.PenaltyRate)

	var penalty decimal.Decimal
	switch p.PenaltyMode {
	case domain.PenaltyModePerDayFixed:
		penalty = days.Mul(rate)
	default:
		penalty = decimal.NewFromInt(amount).Mul(rate).Div(decimal.NewFromInt(100)).Mul(days)
	}

	cents := penalty.Round(0).IntPart()
	if cents < 0 {
		return 0
	}
	return cents
}
