package rules

import (
	"time"

	"github.com/cajacoop/admin-api/internal/domain"
)

// ProgressResult describes where a member stands against the annual savings
// plan at the moment a contribution lands.
type ProgressResult struct {
	Applies         bool
	Target          int64
	ExemptByAdvance bool
	ExemptByOnTime  bool
	NewProgress     int64
}

// EvaluateProgress checks a savings credit against the cumulative target for
// the deposit's month. The monthly rate comes from the member's category when
// the policy carries an override for it. A member already at or ahead of
// target is exempt from lateness penalties regardless of date; one paying by
// the due day is exempt when this credit brings them up to the month's
// cumulative target. Each exemption can be switched off in policy.
func EvaluateProgress(m *domain.Member, p domain.Policy, date time.Time, credit int64) ProgressResult {
	res := ProgressResult{NewProgress: m.AnnualProgress}
	if date.Year() != p.PenaltyYear {
		return res
	}

	monthIndex := int(date.Month())
	if monthIndex > p.AnnualMonths {
		monthIndex = p.AnnualMonths
	}

	res.Applies = true
	res.Target = p.MonthlyRateFor(m.Category) * int64(monthIndex)
	res.ExemptByAdvance = p.ExemptIfAhead && m.AnnualProgress >= res.Target
	res.ExemptByOnTime = p.ExemptIfOnPace && date.Day() <= p.DueDay && m.AnnualProgress+credit >= res.Target
	res.NewProgress = m.AnnualProgress + credit
	return res
}

// Carryover computes the fiscal-year cutover figures: the surplus a member
// brings into the new year and how much of it seeds the new year's progress.
func Carryover(contributed, target int64) (carryover, initialProgress int64) {
	carryover = contributed - target
	if carryover < 0 {
		carryover = 0
	}
	initialProgress = carryover
	if initialProgress > target {
		initialProgress = target
	}
	return carryover, initialProgress
}
