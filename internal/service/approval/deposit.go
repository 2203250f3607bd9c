package approval

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/cajacoop/admin-api/internal/logging"
	"github.com/cajacoop/admin-api/internal/rules"
)

type ReviewDepositRequest struct {
	DepositID       uuid.UUID
	AdminID         uuid.UUID
	Approve         bool
	Observations    string
	DetailOverride  []domain.DetailSplit
	InterestRatePct *float64
	DocumentURL     *string
	PenaltyExempt   bool
	// PerMemberPenalties lets the admin dictate the penalty withheld from a
	// member's share instead of the computed one. Cents, keyed by member.
	PerMemberPenalties map[uuid.UUID]int64
}

type ReviewDepositResult struct {
	Deposit        *domain.Deposit
	PenaltyAmount  int64
	LeftoverAmount int64
}

// ReviewDeposit settles a pending deposit: either rejects it, or applies the
// full approval protocol in a single transaction. Every read happens before
// the first write, member rows are locked in sorted order and the cash row
// last, so concurrent reviews serialize cleanly.
func (s *Service) ReviewDeposit(ctx context.Context, req ReviewDepositRequest) (*ReviewDepositResult, error) {
	policy, err := s.resolvePolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReviewDeposit: %w", err)
	}

	var result *ReviewDepositResult
	err = s.withRetry(ctx, func(ctx context.Context) error {
		var txErr error
		result, txErr = s.reviewDepositTx(ctx, req, policy)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("ReviewDeposit: %w", err)
	}

	logging.FromContext(ctx).Info("deposit reviewed",
		"deposit_id", req.DepositID,
		"approved", req.Approve,
		"penalty", result.PenaltyAmount,
		"leftover", result.LeftoverAmount,
	)
	return result, nil
}

func (s *Service) reviewDepositTx(ctx context.Context, req ReviewDepositRequest, policy domain.Policy) (*ReviewDepositResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("reviewDepositTx: begin tx: %w", err)
	}
	defer tx.Rollback()

	d, err := s.deposits.GetForUpdate(ctx, tx, req.DepositID)
	if err != nil {
		return nil, fmt.Errorf("reviewDepositTx: %w", err)
	}
	if d.Terminal() {
		return nil, fmt.Errorf("reviewDepositTx: %w", domain.ErrDepositTerminal)
	}

	now := time.Now().UTC()

	if !req.Approve {
		if err := s.deposits.MarkRejected(ctx, tx, d.ID, req.AdminID, now, req.Observations); err != nil {
			return nil, fmt.Errorf("reviewDepositTx: %w", err)
		}
		s.notify(ctx, tx, d.MemberID, domain.NotificationDepositRejected,
			"Deposit rejected", req.Observations)
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("reviewDepositTx: commit: %w", err)
		}
		d.Status = domain.DepositStatusRejected
		return &ReviewDepositResult{Deposit: d}, nil
	}

	if err := s.validateApproval(ctx, tx, d, req); err != nil {
		return nil, fmt.Errorf("reviewDepositTx: %w", err)
	}

	splits, explicit, err := resolveSplits(d, req.DetailOverride)
	if err != nil {
		return nil, fmt.Errorf("reviewDepositTx: %w", err)
	}

	memberIDs := make([]uuid.UUID, len(splits))
	for i, sp := range splits {
		memberIDs[i] = sp.MemberID
	}
	locked, err := lockMembersInOrder(ctx, tx, s.members, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("reviewDepositTx: %w", err)
	}

	basis := d.EffectiveDate()
	if policy.PenaltyDateBasis == domain.PenaltyBasisApprovalTime {
		basis = now
	}

	// Leftover is decided before any crediting. An explicit breakdown may
	// come up short of the voucher; that remainder stays with the
	// cooperative. A lump savings deposit instead runs through the monthly
	// allocator, whose remainder below one unit is likewise withheld.
	var allocLeftover int64
	if explicit {
		var sum int64
		for _, sp := range splits {
			sum += sp.Amount
		}
		d.LeftoverAmount = d.Amount - sum
	} else if d.Kind == domain.ContributionSavings {
		if split := rules.SplitMonthlyDeposit(d.Amount, basis, policy.MonthlyUnit); split != nil {
			d.AutoAllocated = true
			d.MonthsCovered = split.Months
			d.LeftoverAmount = split.Leftover
			allocLeftover = split.Leftover
		}
	}

	var totalPenalty int64
	var anyWaived bool
	for _, sp := range splits {
		penalty, waived, err := s.applyShare(ctx, tx, d, sp, locked[sp.MemberID], policy, basis, req, allocLeftover, now)
		if err != nil {
			return nil, fmt.Errorf("reviewDepositTx: %w", err)
		}
		totalPenalty += penalty
		anyWaived = anyWaived || waived
	}

	// Cash is locked last. The caja receives the full voucher amount once,
	// plus every penalty withheld on top of it.
	cash, err := s.cash.GetForUpdate(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("reviewDepositTx: %w", err)
	}
	if err := s.cash.ApplyDelta(ctx, tx, d.Amount+totalPenalty, cash.Version, req.AdminID); err != nil {
		return nil, fmt.Errorf("reviewDepositTx: %w", err)
	}

	d.Detail = splits
	d.PenaltyAmount = totalPenalty
	d.PenaltyExempt = d.PenaltyExempt || req.PenaltyExempt || anyWaived
	d.ReviewedAt = &now
	d.ReviewedBy = &req.AdminID
	d.Observations = req.Observations
	if err := s.deposits.MarkApproved(ctx, tx, d); err != nil {
		return nil, fmt.Errorf("reviewDepositTx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("reviewDepositTx: commit: %w", err)
	}

	d.Status = domain.DepositStatusApproved
	return &ReviewDepositResult{
		Deposit:        d,
		PenaltyAmount:  totalPenalty,
		LeftoverAmount: d.LeftoverAmount,
	}, nil
}

func (s *Service) validateApproval(ctx context.Context, tx *sql.Tx, d *domain.Deposit, req ReviewDepositRequest) error {
	if !d.Kind.Valid() {
		return fmt.Errorf("validateApproval: %q: %w", d.Kind, domain.ErrInvalidKind)
	}
	if d.Amount <= 0 {
		return fmt.Errorf("validateApproval: %w", domain.ErrInvalidAmount)
	}
	for _, p := range req.PerMemberPenalties {
		if p < 0 {
			return fmt.Errorf("validateApproval: negative penalty: %w", domain.ErrInvalidAmount)
		}
	}

	if d.Kind == domain.ContributionFixedTerm || d.Kind == domain.ContributionCertificate {
		if req.DocumentURL != nil {
			d.DocumentURL = req.DocumentURL
		}
		if req.InterestRatePct != nil {
			d.InterestRatePct = req.InterestRatePct
		}
		if d.DocumentURL == nil || *d.DocumentURL == "" || d.InterestRatePct == nil {
			return fmt.Errorf("validateApproval: %w", domain.ErrMissingDocument)
		}
	}

	if d.VoucherHash != nil && *d.VoucherHash != "" {
		dup, err := s.deposits.FindApprovedByVoucherHash(ctx, tx, *d.VoucherHash, d.ID)
		if err != nil {
			return fmt.Errorf("validateApproval: %w", err)
		}
		if dup != nil {
			return fmt.Errorf("validateApproval: voucher reused by deposit %s: %w", dup.ID, domain.ErrDuplicateVoucher)
		}
	}
	return nil
}

// applyShare credits one member's portion: penalty assessment, bucket
// update, progress tracking, movement and notification. Returns the penalty
// withheld from this share and whether an exemption waived a charge that
// would otherwise have applied. The movement carries the full share amount;
// a withheld penalty gets its own positive movement so the audit stream sums
// to the cash delta.
func (s *Service) applyShare(ctx context.Context, tx *sql.Tx, d *domain.Deposit, sp domain.DetailSplit, m *domain.Member, policy domain.Policy, basis time.Time, req ReviewDepositRequest, leftover int64, now time.Time) (int64, bool, error) {
	kind := sp.Kind
	if kind == "" {
		kind = d.Kind
	}
	supplied, hasSupplied := req.PerMemberPenalties[sp.MemberID]

	var penalty int64
	var waived bool

	switch kind {
	case domain.ContributionSavings:
		// The allocator's sub-unit remainder stays with the cooperative,
		// only whole covered months count toward savings.
		creditable := sp.Amount - leftover
		progress := rules.EvaluateProgress(m, policy, basis, creditable)
		if hasSupplied {
			penalty = supplied
		} else {
			exempt := d.PenaltyExempt || req.PenaltyExempt ||
				(progress.Applies && (progress.ExemptByAdvance || progress.ExemptByOnTime))
			penalty = rules.ComputePenalty(basis, policy, creditable)
			if exempt {
				waived = penalty > 0
				penalty = 0
			}
		}
		if penalty > creditable {
			penalty = creditable
		}
		credit := creditable - penalty

		m.SavingsTotal += credit
		if progress.Applies {
			m.AnnualProgress += credit
		}
		if penalty > 0 {
			m.PenaltiesTotal += penalty
			if err := s.recordPenalty(ctx, tx, d, m.ID, penalty, now); err != nil {
				return 0, false, err
			}
		}

	case domain.ContributionFixedTerm:
		if hasSupplied {
			penalty = supplied
		}
		if penalty > sp.Amount {
			penalty = sp.Amount
		}
		m.FixedTermTotal += sp.Amount - penalty
		if penalty > 0 {
			m.PenaltiesTotal += penalty
			if err := s.recordPenalty(ctx, tx, d, m.ID, penalty, now); err != nil {
				return 0, false, err
			}
		}

	case domain.ContributionCertificate:
		if hasSupplied {
			penalty = supplied
		}
		if penalty > sp.Amount {
			penalty = sp.Amount
		}
		m.CertificateTotal += sp.Amount - penalty
		if penalty > 0 {
			m.PenaltiesTotal += penalty
			if err := s.recordPenalty(ctx, tx, d, m.ID, penalty, now); err != nil {
				return 0, false, err
			}
		}

	case domain.ContributionLoanPayment:
		loan, err := s.loans.GetActiveByMember(ctx, tx, m.ID)
		if err != nil {
			return 0, false, fmt.Errorf("applyShare: %w", err)
		}
		if err := s.applyLoanPayment(ctx, tx, loan, m, sp.Amount, d.ID, now); err != nil {
			return 0, false, fmt.Errorf("applyShare: %w", err)
		}

	case domain.ContributionPenalty:
		// The member is settling standing penalties: mark them paid and
		// reset the assessed total to zero.
		if err := s.penalties.MarkPaidByMember(ctx, tx, m.ID, d.ID, now); err != nil {
			return 0, false, fmt.Errorf("applyShare: %w", err)
		}
		m.PenaltiesTotal = 0
		if sp.Kind == domain.ContributionPenalty {
			// A penalty-typed line inside a breakdown is penalty money on
			// top of the voucher, so it flows to cash with the rest of the
			// withheld penalties.
			penalty = sp.Amount
		}
	}

	m.Version++
	if err := s.members.UpdateBalances(ctx, tx, m); err != nil {
		return 0, false, fmt.Errorf("applyShare: %w", err)
	}

	mvKind := domain.MovementDepositApproved
	switch kind {
	case domain.ContributionLoanPayment:
		mvKind = domain.MovementLoanPayment
	case domain.ContributionPenalty:
		mvKind = domain.MovementPenaltyCharged
	}
	mv := &domain.Movement{
		ID:          uuid.New(),
		MemberID:    m.ID,
		Kind:        mvKind,
		ReferenceID: d.ID,
		Amount:      sp.Amount,
		Description: d.Description,
		RecordedBy:  req.AdminID,
		CreatedAt:   now,
	}
	if err := s.movements.Create(ctx, tx, mv); err != nil {
		return 0, false, fmt.Errorf("applyShare: %w", err)
	}

	if penalty > 0 && kind != domain.ContributionPenalty {
		desc := "late contribution penalty"
		if hasSupplied {
			desc = "penalty applied by admin"
		}
		pm := &domain.Movement{
			ID:          uuid.New(),
			MemberID:    m.ID,
			Kind:        domain.MovementPenaltyCharged,
			ReferenceID: d.ID,
			Amount:      penalty,
			Description: desc,
			RecordedBy:  req.AdminID,
			CreatedAt:   now,
		}
		if err := s.movements.Create(ctx, tx, pm); err != nil {
			return 0, false, fmt.Errorf("applyShare: %w", err)
		}
	}

	s.notify(ctx, tx, m.ID, domain.NotificationDepositApproved,
		"Deposit approved", fmt.Sprintf("Your %s contribution was approved.", kind))
	if penalty > 0 && kind != domain.ContributionPenalty {
		s.notify(ctx, tx, m.ID, domain.NotificationPenaltyCharged,
			"Late penalty charged", "A lateness penalty was deducted from your contribution.")
	}

	return penalty, waived, nil
}

func (s *Service) recordPenalty(ctx context.Context, tx *sql.Tx, d *domain.Deposit, memberID uuid.UUID, amount int64, now time.Time) error {
	p := &domain.Penalty{
		ID:            uuid.New(),
		MemberID:      memberID,
		Amount:        amount,
		Reason:        "late contribution",
		Status:        domain.PenaltyStatusPaid,
		PaidByDeposit: &d.ID,
		PaidAt:        &now,
		CreatedAt:     now,
	}
	if err := s.penalties.Create(ctx, tx, p); err != nil {
		return fmt.Errorf("recordPenalty: %w", err)
	}
	return nil
}

// resolveSplits picks the effective per-member breakdown: the admin's
// override wins, then the splits submitted with the deposit, then the whole
// amount to the depositing member. Shares must be positive and may sum to
// less than the deposit, never more; the shortfall is the deposit's
// leftover. The second result reports whether an explicit breakdown was
// used.
func resolveSplits(d *domain.Deposit, override []domain.DetailSplit) ([]domain.DetailSplit, bool, error) {
	splits := override
	if splits == nil {
		splits = d.Detail
	}
	if splits == nil {
		return []domain.DetailSplit{{MemberID: d.MemberID, Amount: d.Amount}}, false, nil
	}

	var sum int64
	for _, sp := range splits {
		if sp.Amount <= 0 {
			return nil, false, fmt.Errorf("resolveSplits: %w", domain.ErrInvalidAmount)
		}
		if sp.Kind != "" && !sp.Kind.Valid() {
			return nil, false, fmt.Errorf("resolveSplits: %q: %w", sp.Kind, domain.ErrInvalidKind)
		}
		sum += sp.Amount
	}
	if sum > d.Amount {
		return nil, false, fmt.Errorf("resolveSplits: splits sum %d exceeds deposit %d: %w", sum, d.Amount, domain.ErrDetailMismatch)
	}
	return splits, true, nil
}
