package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/domain"
)

type DirectContributionRequest struct {
	MemberID      uuid.UUID
	AdminID       uuid.UUID
	Kind          domain.ContributionKind
	Amount        int64
	Description   string
	PaymentDate   *time.Time
	PenaltyExempt bool
}

// DirectContribution records a contribution the admin received out of band
// (cash in hand, an old transfer being backfilled). It creates the deposit
// and immediately runs it through the approval protocol, so the ledger
// effects are identical to a reviewed voucher.
func (s *Service) DirectContribution(ctx context.Context, req DirectContributionRequest) (*ReviewDepositResult, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("DirectContribution: %w", domain.ErrInvalidKind)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("DirectContribution: %w", domain.ErrInvalidAmount)
	}
	if _, err := s.members.GetByID(ctx, req.MemberID); err != nil {
		return nil, fmt.Errorf("DirectContribution: %w", err)
	}

	d := &domain.Deposit{
		ID:                  uuid.New(),
		MemberID:            req.MemberID,
		Kind:                req.Kind,
		Amount:              req.Amount,
		Status:              domain.DepositStatusPending,
		Description:         req.Description,
		DetectedPaymentDate: req.PaymentDate,
		SubmittedAt:         time.Now().UTC(),
	}
	if err := s.deposits.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("DirectContribution: %w", err)
	}

	res, err := s.ReviewDeposit(ctx, ReviewDepositRequest{
		DepositID:     d.ID,
		AdminID:       req.AdminID,
		Approve:       true,
		Observations:  "recorded by admin",
		PenaltyExempt: req.PenaltyExempt,
	})
	if err != nil {
		return nil, fmt.Errorf("DirectContribution: %w", err)
	}
	return res, nil
}
