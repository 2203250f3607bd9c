package domain

import (
	"time"

	"github.com/google/uuid"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusFinalized LoanStatus = "finalized"
)

// LoanPayment is one entry of a loan's payment history, kept inline on the
// loan row as JSON.
type LoanPayment struct {
	DepositID uuid.UUID `json:"deposit_id"`
	Amount    int64     `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

type Loan struct {
	ID                 uuid.UUID
	MemberID           uuid.UUID
	RequestedAmount    int64
	ApprovedAmount     int64
	InterestRatePct    float64
	TermMonths         int
	MonthlyInstallment int64
	Remaining          int64
	MonthsRemaining    int
	Status             LoanStatus
	Payments           []LoanPayment
	ContractURL        *string
	Observations       string
	ApprovedBy         *uuid.UUID
	StartedAt          *time.Time
	EndsAt             *time.Time
	NextPaymentAt      *time.Time
	LastPaymentAt      *time.Time
	FinalizedAt        *time.Time
	CreatedAt          time.Time
}

func (l *Loan) Terminal() bool {
	return l.Status == LoanStatusRejected || l.Status == LoanStatusFinalized
}

// PaidTotal sums the recorded payment history.
func (l *Loan) PaidTotal() int64 {
	var total int64
	for _, p := range l.Payments {
		total += p.Amount
	}
	return total
}
