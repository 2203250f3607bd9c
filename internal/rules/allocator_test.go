package rules

import (
	"testing"
	"time"

	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMonthlyDeposit(t *testing.T) {
	unit := int64(2500)

	tests := []struct {
		name       string
		amount     int64
		ref        time.Time
		wantNil    bool
		wantMonths []domain.MonthAllocation
		wantLeft   int64
	}{
		{
			name:   "three units crossing a year boundary",
			amount: 7500,
			ref:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			wantMonths: []domain.MonthAllocation{
				{Year: 2024, Month: 10, Amount: 2500},
				{Year: 2024, Month: 11, Amount: 2500},
				{Year: 2024, Month: 12, Amount: 2500},
			},
		},
		{
			name:   "two units mid year",
			amount: 5000,
			ref:    time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			wantMonths: []domain.MonthAllocation{
				{Year: 2025, Month: 4, Amount: 2500},
				{Year: 2025, Month: 5, Amount: 2500},
			},
		},
		{
			name:   "leftover below one unit is kept aside",
			amount: 8000,
			ref:    time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
			wantMonths: []domain.MonthAllocation{
				{Year: 2025, Month: 1, Amount: 2500},
				{Year: 2025, Month: 2, Amount: 2500},
				{Year: 2025, Month: 3, Amount: 2500},
			},
			wantLeft: 500,
		},
		{
			name:       "exactly one unit covers the previous month",
			amount:     2500,
			ref:        time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			wantMonths: []domain.MonthAllocation{{Year: 2025, Month: 2, Amount: 2500}},
		},
		{
			name:    "below one unit goes to manual review",
			amount:  2000,
			ref:     time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			wantNil: true,
		},
		{
			name:    "zero amount",
			amount:  0,
			ref:     time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			wantNil: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			split := SplitMonthlyDeposit(tc.amount, tc.ref, unit)
			if tc.wantNil {
				assert.Nil(t, split)
				return
			}
			require.NotNil(t, split)
			assert.Equal(t, tc.wantMonths, split.Months)
			assert.Equal(t, tc.wantLeft, split.Leftover)
			assert.Equal(t, tc.amount, split.Allocated+split.Leftover, "conservation")
		})
	}
}

func TestSplitMonthlyDepositConservesEveryAmount(t *testing.T) {
	ref := time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)
	for amount := int64(2500); amount <= 30000; amount += 731 {
		split := SplitMonthlyDeposit(amount, ref, 2500)
		require.NotNil(t, split)

		var sum int64
		for _, m := range split.Months {
			sum += m.Amount
		}
		require.Equal(t, amount, sum+split.Leftover, "amount %d", amount)
	}
}
