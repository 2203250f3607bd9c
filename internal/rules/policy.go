package rules

import "github.com/cajacoop/admin-api/internal/domain"

// PolicyPatch is a partial policy as stored in app_config. Nil fields fall
// through to the layer below.
type PolicyPatch struct {
	MonthlyUnit      *int64                   `json:"monthly_unit,omitempty"`
	DueDay           *int                     `json:"due_day,omitempty"`
	GraceDays        *int                     `json:"grace_days,omitempty"`
	PenaltyMode      *domain.PenaltyMode      `json:"penalty_mode,omitempty"`
	PenaltyRate      *float64                 `json:"penalty_rate,omitempty"`
	PenaltyDateBasis *domain.PenaltyDateBasis `json:"penalty_date_basis,omitempty"`
	PenaltyYear      *int                     `json:"penalty_year,omitempty"`
	AnnualMonths     *int                     `json:"annual_months,omitempty"`
	ExemptIfOnPace   *bool                    `json:"exempt_if_on_pace,omitempty"`
	ExemptIfAhead    *bool                    `json:"exempt_if_ahead,omitempty"`
	Categories       []domain.CategoryRate    `json:"categories,omitempty"`
}

// ResolvePolicy merges stored config layers over the built-in defaults.
// Later patches win; nil patches are skipped, so callers can pass whatever
// rows happened to exist.
func ResolvePolicy(patches ...*PolicyPatch) domain.Policy {
	p := domain.DefaultPolicy()
	for _, patch := range patches {
		if patch == nil {
			continue
		}
		if patch.MonthlyUnit != nil && *patch.MonthlyUnit > 0 {
			p.MonthlyUnit = *patch.MonthlyUnit
		}
		if patch.DueDay != nil && *patch.DueDay >= 1 && *patch.DueDay <= 28 {
			p.DueDay = *patch.DueDay
		}
		if patch.GraceDays != nil && *patch.GraceDays >= 0 {
			p.GraceDays = *patch.GraceDays
		}
		if patch.PenaltyMode != nil {
			switch *patch.PenaltyMode {
			case domain.PenaltyModePerDayPercent, domain.PenaltyModePerDayFixed:
				p.PenaltyMode = *patch.PenaltyMode
			}
		}
		if patch.PenaltyRate != nil && *patch.PenaltyRate >= 0 {
			p.PenaltyRate = *patch.PenaltyRate
		}
		if patch.PenaltyDateBasis != nil {
			switch *patch.PenaltyDateBasis {
			case domain.PenaltyBasisDepositDate, domain.PenaltyBasisApprovalTime:
				p.PenaltyDateBasis = *patch.PenaltyDateBasis
			}
		}
		if patch.PenaltyYear != nil && *patch.PenaltyYear > 0 {
			p.PenaltyYear = *patch.PenaltyYear
		}
		if patch.AnnualMonths != nil && *patch.AnnualMonths >= 1 && *patch.AnnualMonths <= 12 {
			p.AnnualMonths = *patch.AnnualMonths
		}
		if patch.ExemptIfOnPace != nil {
			p.ExemptIfOnPace = *patch.ExemptIfOnPace
		}
		if patch.ExemptIfAhead != nil {
			p.ExemptIfAhead = *patch.ExemptIfAhead
		}
		if len(patch.Categories) > 0 {
			cats := make([]domain.CategoryRate, 0, len(patch.Categories))
			for _, c := range patch.Categories {
				if c.Name != "" && c.Monthly > 0 {
					cats = append(cats, c)
				}
			}
			if len(cats) > 0 {
				p.Categories = cats
			}
		}
	}
	return p
}
