package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationDepositApproved NotificationKind = "deposit_approved"
	NotificationDepositRejected NotificationKind = "deposit_rejected"
	NotificationLoanApproved    NotificationKind = "loan_approved"
	NotificationLoanFinalized   NotificationKind = "loan_finalized"
	NotificationPenaltyCharged  NotificationKind = "penalty_charged"
)

type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusDelivered NotificationStatus = "delivered"
	NotificationStatusFailed    NotificationStatus = "failed"
)

// Notification is an outbox row written inside approval transactions and
// delivered asynchronously by the dispatcher.
type Notification struct {
	ID          uuid.UUID
	MemberID    uuid.UUID
	Title       string
	Message     string
	Kind        NotificationKind
	Status      NotificationStatus
	Attempts    int
	LastAttempt *time.Time
	CreatedAt   time.Time
}
