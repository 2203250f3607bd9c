package domain

type PenaltyMode string

const (
	PenaltyModePerDayPercent PenaltyMode = "per_day_percent"
	PenaltyModePerDayFixed   PenaltyMode = "per_day_fixed"
)

type PenaltyDateBasis string

const (
	// PenaltyBasisDepositDate assesses lateness against the date the money
	// actually moved (detected payment date, falling back to submission).
	PenaltyBasisDepositDate PenaltyDateBasis = "deposit_date"
	// PenaltyBasisApprovalTime assesses lateness against the moment the
	// admin approves.
	PenaltyBasisApprovalTime PenaltyDateBasis = "approval_time"
)

// CategoryRate overrides the monthly contribution for one member category.
// AnnualTarget of 0 means derive it as Monthly * AnnualMonths.
type CategoryRate struct {
	Name         MemberCategory `json:"name"`
	Monthly      int64          `json:"monthly"`
	AnnualTarget int64          `json:"annual_target,omitempty"`
}

// Policy is the resolved cooperative configuration that rules operate on.
// Monetary fields are cents; PenaltyRate is a percentage for
// per_day_percent mode and a fixed cent amount per day for per_day_fixed.
type Policy struct {
	MonthlyUnit      int64            `json:"monthly_unit"`
	DueDay           int              `json:"due_day"`
	GraceDays        int              `json:"grace_days"`
	PenaltyMode      PenaltyMode      `json:"penalty_mode"`
	PenaltyRate      float64          `json:"penalty_rate"`
	PenaltyDateBasis PenaltyDateBasis `json:"penalty_date_basis"`
	PenaltyYear      int              `json:"penalty_year"`
	AnnualMonths     int              `json:"annual_months"`
	ExemptIfOnPace   bool             `json:"exempt_if_on_pace"`
	ExemptIfAhead    bool             `json:"exempt_if_ahead"`
	Categories       []CategoryRate   `json:"categories,omitempty"`
}

// MonthlyRateFor returns the monthly contribution for a category, falling
// back to the base unit when the category has no override.
func (p Policy) MonthlyRateFor(cat MemberCategory) int64 {
	for _, c := range p.Categories {
		if c.Name == cat && c.Monthly > 0 {
			return c.Monthly
		}
	}
	return p.MonthlyUnit
}

// DefaultPolicy mirrors the values the cooperative has operated with since
// penalties were introduced in 2025.
func DefaultPolicy() Policy {
	return Policy{
		MonthlyUnit:      2500,
		DueDay:           10,
		GraceDays:        0,
		PenaltyMode:      PenaltyModePerDayPercent,
		PenaltyRate:      1.0,
		PenaltyDateBasis: PenaltyBasisDepositDate,
		PenaltyYear:      2025,
		AnnualMonths:     12,
		ExemptIfOnPace:   true,
		ExemptIfAhead:    true,
	}
}
