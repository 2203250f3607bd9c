package domain

import (
	"time"

	"github.com/google/uuid"
)

type MovementKind string

const (
	MovementDepositApproved MovementKind = "deposit_approved"
	MovementDepositRejected MovementKind = "deposit_rejected"
	MovementLoanDisbursed   MovementKind = "loan_disbursed"
	MovementLoanPayment     MovementKind = "loan_payment"
	MovementLoanPrecancel   MovementKind = "loan_precancel"
	MovementPenaltyCharged  MovementKind = "penalty_charged"
	MovementDirectCredit    MovementKind = "direct_credit"
	MovementYearCutover     MovementKind = "year_cutover"
)

// Movement is an append-only audit record. ReferenceID points at the deposit
// or loan that caused it; Amount is signed from the member's point of view.
type Movement struct {
	ID          uuid.UUID
	MemberID    uuid.UUID
	Kind        MovementKind
	ReferenceID uuid.UUID
	Amount      int64
	Description string
	RecordedBy  uuid.UUID
	CreatedAt   time.Time
}
