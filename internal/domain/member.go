package domain

import (
	"time"

	"github.com/google/uuid"
)

type MemberCategory string

const (
	MemberCategoryNew      MemberCategory = "new"
	MemberCategoryFounding MemberCategory = "founding"
)

type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

// Member balances are kept in minor units (cents). The five bucket totals
// plus the annual-progress fields are only ever mutated inside an approval
// transaction, guarded by the Version column.
type Member struct {
	ID               uuid.UUID
	Name             string
	Email            string
	Category         MemberCategory
	Status           MemberStatus
	SavingsTotal     int64
	FixedTermTotal   int64
	CertificateTotal int64
	LoansTotal       int64
	PenaltiesTotal   int64
	AnnualProgress   int64
	AnnualTarget     int64
	Carryover        int64
	Version          int64
	JoinedAt         *time.Time
	CreatedAt        time.Time
}

// NetPosition is the member's aggregate standing: everything they hold with
// the cooperative minus what they owe it.
func (m *Member) NetPosition() int64 {
	return m.SavingsTotal + m.FixedTermTotal + m.CertificateTotal + m.PenaltiesTotal - m.LoansTotal
}
