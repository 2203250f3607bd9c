package rules

import (
	"testing"
	"time"

	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePenalty(t *testing.T) {
	policy := domain.DefaultPolicy() // due day 10, 1% per day, year 2025

	tests := []struct {
		name     string
		assessed time.Time
		policy   domain.Policy
		amount   int64
		want     int64
	}{
		{
			name:     "on the due day costs nothing",
			assessed: time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC),
			policy:   policy,
			amount:   2500,
			want:     0,
		},
		{
			name:     "before the due day costs nothing",
			assessed: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
			policy:   policy,
			amount:   2500,
			want:     0,
		},
		{
			name:     "five days late at one percent per day",
			assessed: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
			policy:   policy,
			amount:   2500,
			want:     125,
		},
		{
			name:     "grace period shifts the cutoff",
			assessed: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
			policy:   withGrace(policy, 3),
			amount:   2500,
			want:     0,
		},
		{
			name:     "one day past the grace period",
			assessed: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			policy:   withGrace(policy, 3),
			amount:   2500,
			want:     25,
		},
		{
			name:     "fixed mode charges per day regardless of amount",
			assessed: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
			policy:   withMode(policy, domain.PenaltyModePerDayFixed, 50),
			amount:   100000,
			want:     250,
		},
		{
			name:     "years before the scheme started are free",
			assessed: time.Date(2024, 11, 28, 0, 0, 0, 0, time.UTC),
			policy:   policy,
			amount:   2500,
			want:     0,
		},
		{
			name:     "zero rate disables penalties",
			assessed: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
			policy:   withMode(policy, domain.PenaltyModePerDayPercent, 0),
			amount:   2500,
			want:     0,
		},
		{
			name:     "zero amount charges nothing",
			assessed: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
			policy:   policy,
			amount:   0,
			want:     0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputePenalty(tc.assessed, tc.policy, tc.amount))
		})
	}
}

func TestComputePenaltyMonotoneInLateness(t *testing.T) {
	policy := domain.DefaultPolicy()
	prev := int64(-1)
	for day := 11; day <= 28; day++ {
		assessed := time.Date(2025, 5, day, 0, 0, 0, 0, time.UTC)
		got := ComputePenalty(assessed, policy, 2500)
		require.GreaterOrEqual(t, got, prev, "day %d", day)
		prev = got
	}
}

func withGrace(p domain.Policy, days int) domain.Policy {
	p.GraceDays = days
	return p
}

func withMode(p domain.Policy, mode domain.PenaltyMode, rate float64) domain.Policy {
	p.PenaltyMode = mode
	p.PenaltyRate = rate
	return p
}
