package domain

import (
	"time"

	"github.com/google/uuid"
)

type ContributionKind string

const (
	ContributionSavings     ContributionKind = "savings"
	ContributionFixedTerm   ContributionKind = "fixed_term"
	ContributionCertificate ContributionKind = "certificate"
	ContributionLoanPayment ContributionKind = "loan_payment"
	ContributionPenalty     ContributionKind = "penalty"
)

func (k ContributionKind) Valid() bool {
	switch k {
	case ContributionSavings, ContributionFixedTerm, ContributionCertificate,
		ContributionLoanPayment, ContributionPenalty:
		return true
	}
	return false
}

type DepositStatus string

const (
	DepositStatusPending  DepositStatus = "pending"
	DepositStatusApproved DepositStatus = "approved"
	DepositStatusRejected DepositStatus = "rejected"
)

// DetailSplit is one per-member share of a deposit submitted on behalf of
// several members at once. Amounts are cents; the shares may sum to less
// than the deposit amount, the remainder stays with the cooperative as
// leftover. An empty Kind inherits the deposit's kind.
type DetailSplit struct {
	MemberID uuid.UUID        `json:"member_id"`
	Amount   int64            `json:"amount"`
	Kind     ContributionKind `json:"kind,omitempty"`
}

// MonthAllocation records one calendar month covered by an automatic
// savings split.
type MonthAllocation struct {
	Year   int   `json:"year"`
	Month  int   `json:"month"`
	Amount int64 `json:"amount"`
}

type Deposit struct {
	ID                  uuid.UUID
	MemberID            uuid.UUID
	Kind                ContributionKind
	Amount              int64
	Status              DepositStatus
	Description         string
	Detail              []DetailSplit
	AutoAllocated       bool
	MonthsCovered       []MonthAllocation
	LeftoverAmount      int64
	PenaltyAmount       int64
	PenaltyExempt       bool
	InterestRatePct     *float64
	DocumentURL         *string
	VoucherURL          *string
	VoucherHash         *string
	DetectedPaymentDate *time.Time
	SubmittedAt         time.Time
	ReviewedAt          *time.Time
	ReviewedBy          *uuid.UUID
	Observations        string
	DeletedAt           *time.Time
	DeletedBy           *uuid.UUID
	DeleteReason        *string
}

// Terminal reports whether the deposit has already been reviewed and can no
// longer change state.
func (d *Deposit) Terminal() bool {
	return d.Status == DepositStatusApproved || d.Status == DepositStatusRejected
}

// EffectiveDate is the date penalties are assessed against: the payment date
// detected on the voucher when present, otherwise the submission time.
func (d *Deposit) EffectiveDate() time.Time {
	if d.DetectedPaymentDate != nil {
		return *d.DetectedPaymentDate
	}
	return d.SubmittedAt
}
