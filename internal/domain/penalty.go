package domain

import (
	"time"

	"github.com/google/uuid"
)

type PenaltyStatus string

const (
	PenaltyStatusPending PenaltyStatus = "pending"
	PenaltyStatusPaid    PenaltyStatus = "paid"
	PenaltyStatusWaived  PenaltyStatus = "waived"
)

type Penalty struct {
	ID            uuid.UUID
	MemberID      uuid.UUID
	Amount        int64
	Reason        string
	Status        PenaltyStatus
	PaidByDeposit *uuid.UUID
	PaidAt        *time.Time
	CreatedAt     time.Time
}
