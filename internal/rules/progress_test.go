package rules

import (
	"testing"
	"time"

	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateProgress(t *testing.T) {
	policy := domain.DefaultPolicy()

	tests := []struct {
		name     string
		progress int64
		date     time.Time
		credit   int64
		want     ProgressResult
	}{
		{
			name:     "ahead of target is exempt by advance",
			progress: 10000,
			date:     time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
			credit:   2500,
			want: ProgressResult{
				Applies:         true,
				Target:          7500,
				ExemptByAdvance: true,
				NewProgress:     12500,
			},
		},
		{
			name:     "on time and credit reaches the target",
			progress: 12500,
			date:     time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			credit:   2500,
			want: ProgressResult{
				Applies:        true,
				Target:         15000,
				ExemptByOnTime: true,
				NewProgress:    15000,
			},
		},
		{
			name:     "on time but still short of the target",
			progress: 0,
			date:     time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			credit:   2500,
			want: ProgressResult{
				Applies:     true,
				Target:      15000,
				NewProgress: 2500,
			},
		},
		{
			name:     "behind and late gets no exemption",
			progress: 2500,
			date:     time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
			credit:   2500,
			want: ProgressResult{
				Applies:     true,
				Target:      10000,
				NewProgress: 5000,
			},
		},
		{
			name:     "exactly at target counts as ahead",
			progress: 5000,
			date:     time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC),
			credit:   2500,
			want: ProgressResult{
				Applies:         true,
				Target:          5000,
				ExemptByAdvance: true,
				NewProgress:     7500,
			},
		},
		{
			name:     "other fiscal years do not apply",
			progress: 0,
			date:     time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
			credit:   2500,
			want:     ProgressResult{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &domain.Member{AnnualProgress: tc.progress}
			assert.Equal(t, tc.want, EvaluateProgress(m, policy, tc.date, tc.credit))
		})
	}
}

func TestEvaluateProgress_CategoryRate(t *testing.T) {
	policy := domain.DefaultPolicy()
	policy.Categories = []domain.CategoryRate{
		{Name: domain.MemberCategoryFounding, Monthly: 5000},
	}
	date := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	// A founding member's target doubles, so the same progress is no
	// longer ahead of schedule.
	founding := &domain.Member{Category: domain.MemberCategoryFounding, AnnualProgress: 10000}
	got := EvaluateProgress(founding, policy, date, 2500)
	assert.Equal(t, int64(15000), got.Target)
	assert.False(t, got.ExemptByAdvance)

	// Categories without an override keep the base unit.
	plain := &domain.Member{Category: domain.MemberCategoryNew, AnnualProgress: 10000}
	got = EvaluateProgress(plain, policy, date, 2500)
	assert.Equal(t, int64(7500), got.Target)
	assert.True(t, got.ExemptByAdvance)
}

func TestEvaluateProgress_ExemptionToggles(t *testing.T) {
	ahead := &domain.Member{AnnualProgress: 10000}
	date := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	policy := domain.DefaultPolicy()
	policy.ExemptIfAhead = false
	got := EvaluateProgress(ahead, policy, date, 2500)
	assert.False(t, got.ExemptByAdvance)
	assert.True(t, got.ExemptByOnTime)

	policy = domain.DefaultPolicy()
	policy.ExemptIfOnPace = false
	got = EvaluateProgress(ahead, policy, date, 2500)
	assert.True(t, got.ExemptByAdvance)
	assert.False(t, got.ExemptByOnTime)
}

func TestCarryover(t *testing.T) {
	tests := []struct {
		name         string
		contributed  int64
		target       int64
		wantCarry    int64
		wantProgress int64
	}{
		{"surplus below target", 35000, 30000, 5000, 5000},
		{"surplus above target seeds at most the target", 70000, 30000, 40000, 30000},
		{"deficit carries nothing", 20000, 30000, 0, 0},
		{"exactly on target", 30000, 30000, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			carry, progress := Carryover(tc.contributed, tc.target)
			assert.Equal(t, tc.wantCarry, carry)
			assert.Equal(t, tc.wantProgress, progress)
		})
	}
}
