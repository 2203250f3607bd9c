package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cajacoop/admin-api/internal/domain"
)

func TestResolvePolicy(t *testing.T) {
	unit := int64(3000)
	day := 15
	onPace := false

	t.Run("no patches keeps defaults", func(t *testing.T) {
		got := ResolvePolicy(nil, nil)
		assert.Equal(t, domain.DefaultPolicy(), got)
	})

	t.Run("later patches win", func(t *testing.T) {
		first := &PolicyPatch{MonthlyUnit: &unit}
		second := int64(4000)
		got := ResolvePolicy(first, &PolicyPatch{MonthlyUnit: &second})
		assert.Equal(t, int64(4000), got.MonthlyUnit)
	})

	t.Run("merges exemption toggles and categories", func(t *testing.T) {
		got := ResolvePolicy(&PolicyPatch{
			DueDay:         &day,
			ExemptIfOnPace: &onPace,
			Categories: []domain.CategoryRate{
				{Name: domain.MemberCategoryFounding, Monthly: 5000},
			},
		})
		assert.Equal(t, 15, got.DueDay)
		assert.False(t, got.ExemptIfOnPace)
		assert.True(t, got.ExemptIfAhead)
		assert.Equal(t, int64(5000), got.MonthlyRateFor(domain.MemberCategoryFounding))
		assert.Equal(t, int64(2500), got.MonthlyRateFor(domain.MemberCategoryNew))
	})

	t.Run("rejects out-of-range values", func(t *testing.T) {
		bad := int64(-1)
		badDay := 31
		got := ResolvePolicy(&PolicyPatch{
			MonthlyUnit: &bad,
			DueDay:      &badDay,
			Categories:  []domain.CategoryRate{{Name: "", Monthly: 100}},
		})
		assert.Equal(t, domain.DefaultPolicy(), got)
	})
}
