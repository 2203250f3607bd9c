package approval

import (
	"context"
	"fmt"
)

// CashBreakdown reconciles the stored cash row against the balance implied
// by every member's buckets. Drift means a transaction wrote one side
// without the other.
type CashBreakdown struct {
	Stored       int64 `json:"stored"`
	Dynamic      int64 `json:"dynamic"`
	Drift        int64 `json:"drift"`
	Savings      int64 `json:"savings"`
	FixedTerm    int64 `json:"fixed_term"`
	Certificates int64 `json:"certificates"`
	Loans        int64 `json:"loans"`
	Penalties    int64 `json:"penalties"`
	Members      int   `json:"members"`
}

func (s *Service) CashBalance(ctx context.Context) (*CashBreakdown, error) {
	stored, err := s.cash.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("CashBalance: %w", err)
	}

	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("CashBalance: %w", err)
	}

	b := &CashBreakdown{Stored: stored.Balance, Members: len(members)}
	for i := range members {
		m := &members[i]
		b.Savings += m.SavingsTotal
		b.FixedTerm += m.FixedTermTotal
		b.Certificates += m.CertificateTotal
		b.Loans += m.LoansTotal
		b.Penalties += m.PenaltiesTotal
		b.Dynamic += m.NetPosition()
	}
	b.Drift = b.Stored - b.Dynamic
	return b, nil
}
