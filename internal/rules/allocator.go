package rules

import (
	"time"

	"github.com/cajacoop/admin-api/internal/domain"
)

// MonthlySplit is the result of spreading a savings deposit over the
// months it covers. Allocated+Leftover always equals the input amount.
type MonthlySplit struct {
	Months    []domain.MonthAllocation
	Allocated int64
	Leftover  int64
}

// SplitMonthlyDeposit spreads a savings deposit of at least one monthly
// unit over the calendar months immediately preceding the reference date,
// oldest first. A $75 deposit made 2025-01-01 with a $25 unit covers
// October, November and December 2024. Amounts below one unit return nil
// and are left to manual review.
func SplitMonthlyDeposit(amount int64, ref time.Time, unit int64) *MonthlySplit {
	if unit <= 0 || amount < unit {
		return nil
	}

	n := amount / unit
	split := &MonthlySplit{
		Months:    make([]domain.MonthAllocation, n),
		Allocated: n * unit,
		Leftover:  amount % unit,
	}

	// Walk backward one month at a time so December of the prior year
	// follows January correctly, then store oldest first.
	year, month := ref.Year(), int(ref.Month())
	for i := int64(0); i < n; i++ {
		month--
		if month < 1 {
			month = 12
			year--
		}
		split.Months[n-1-i] = domain.MonthAllocation{Year: year, Month: month, Amount: unit}
	}
	return split
}
