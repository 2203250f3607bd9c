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

type ReviewLoanRequest struct {
	LoanID          uuid.UUID
	AdminID         uuid.UUID
	Approve         bool
	ApprovedAmount  int64
	InterestRatePct float64
	TermMonths      int
	ContractURL     *string
	Observations    string
}

// ReviewLoan approves or rejects a pending loan. Approval disburses the
// money: the caja is debited for the full amount, the member's loan bucket
// grows, and the amortization schedule is fixed from the approved terms.
func (s *Service) ReviewLoan(ctx context.Context, req ReviewLoanRequest) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var txErr error
		loan, txErr = s.reviewLoanTx(ctx, req)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("ReviewLoan: %w", err)
	}

	logging.FromContext(ctx).Info("loan reviewed",
		"loan_id", req.LoanID,
		"approved", req.Approve,
		"amount", loan.ApprovedAmount,
	)
	return loan, nil
}

func (s *Service) reviewLoanTx(ctx context.Context, req ReviewLoanRequest) (*domain.Loan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("reviewLoanTx: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Peek at the loan to learn the member, then lock member before loan so
	// every flow acquires locks in the same order.
	peek, err := s.loans.GetByID(ctx, req.LoanID)
	if err != nil {
		return nil, fmt.Errorf("reviewLoanTx: %w", err)
	}

	m, err := s.members.GetForUpdate(ctx, tx, peek.MemberID)
	if err != nil {
		return nil, fmt.Errorf("reviewLoanTx: %w", err)
	}

	loan, err := s.loans.GetForUpdate(ctx, tx, req.LoanID)
	if err != nil {
		return nil, fmt.Errorf("reviewLoanTx: %w", err)
	}
	if loan.Status != domain.LoanStatusPending {
		return nil, fmt.Errorf("reviewLoanTx: %w", domain.ErrLoanTerminal)
	}

	if !req.Approve {
		if err := s.loans.Reject(ctx, tx, loan.ID, req.AdminID, req.Observations); err != nil {
			return nil, fmt.Errorf("reviewLoanTx: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("reviewLoanTx: commit: %w", err)
		}
		loan.Status = domain.LoanStatusRejected
		return loan, nil
	}

	amount := req.ApprovedAmount
	if amount <= 0 {
		amount = loan.RequestedAmount
	}
	if amount <= 0 {
		return nil, fmt.Errorf("reviewLoanTx: %w", domain.ErrInvalidAmount)
	}

	if req.ContractURL != nil {
		loan.ContractURL = req.ContractURL
	}
	if loan.ContractURL == nil || *loan.ContractURL == "" {
		return nil, fmt.Errorf("reviewLoanTx: %w", domain.ErrMissingContract)
	}

	term := req.TermMonths
	if term <= 0 {
		term = loan.TermMonths
	}
	if term <= 0 {
		return nil, fmt.Errorf("reviewLoanTx: %w", domain.ErrInvalidRequest)
	}

	cash, err := s.cash.GetForUpdate(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("reviewLoanTx: %w", err)
	}
	if cash.Balance < amount {
		return nil, fmt.Errorf("reviewLoanTx: %w", domain.ErrInsufficientCash)
	}

	now := time.Now().UTC()
	ends := now.AddDate(0, term, 0)
	next := now.AddDate(0, 1, 0)

	loan.ApprovedAmount = amount
	loan.InterestRatePct = req.InterestRatePct
	loan.TermMonths = term
	loan.MonthlyInstallment = rules.MonthlyInstallment(amount, req.InterestRatePct, term)
	loan.Remaining = amount
	loan.MonthsRemaining = term
	loan.ApprovedBy = &req.AdminID
	loan.StartedAt = &now
	loan.EndsAt = &ends
	loan.NextPaymentAt = &next

	if err := s.loans.Activate(ctx, tx, loan); err != nil {
		return nil, fmt.Errorf("reviewLoanTx: %w", err)
	}

	m.LoansTotal += amount
	m.Version++
	if err := s.members.UpdateBalances(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("reviewLoanTx: %w", err)
	}

	mv := &domain.Movement{
		ID:          uuid.New(),
		MemberID:    m.ID,
		Kind:        domain.MovementLoanDisbursed,
		ReferenceID: loan.ID,
		Amount:      amount,
		Description: loan.Observations,
		RecordedBy:  req.AdminID,
		CreatedAt:   now,
	}
	if err := s.movements.Create(ctx, tx, mv); err != nil {
		return nil, fmt.Errorf("reviewLoanTx: %w", err)
	}

	if err := s.cash.ApplyDelta(ctx, tx, -amount, cash.Version, req.AdminID); err != nil {
		return nil, fmt.Errorf("reviewLoanTx: %w", err)
	}

	s.notify(ctx, tx, m.ID, domain.NotificationLoanApproved,
		"Loan approved", "Your loan was approved and disbursed.")

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("reviewLoanTx: commit: %w", err)
	}

	loan.Status = domain.LoanStatusApproved
	return loan, nil
}

type LoanPaymentRequest struct {
	LoanID  uuid.UUID
	AdminID uuid.UUID
	Amount  int64
}

// RecordLoanPayment applies a payment directly against a loan: remaining
// balance shrinks, the caja grows, and the loan finalizes when it hits zero.
func (s *Service) RecordLoanPayment(ctx context.Context, req LoanPaymentRequest) (*domain.Loan, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("RecordLoanPayment: %w", domain.ErrInvalidAmount)
	}

	var loan *domain.Loan
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var txErr error
		loan, txErr = s.loanPaymentTx(ctx, req, false)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("RecordLoanPayment: %w", err)
	}
	return loan, nil
}

// PrecancelLoan settles the entire remaining balance in one payment.
func (s *Service) PrecancelLoan(ctx context.Context, loanID, adminID uuid.UUID) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var txErr error
		loan, txErr = s.loanPaymentTx(ctx, LoanPaymentRequest{LoanID: loanID, AdminID: adminID}, true)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("PrecancelLoan: %w", err)
	}
	return loan, nil
}

func (s *Service) loanPaymentTx(ctx context.Context, req LoanPaymentRequest, full bool) (*domain.Loan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("loanPaymentTx: begin tx: %w", err)
	}
	defer tx.Rollback()

	peek, err := s.loans.GetByID(ctx, req.LoanID)
	if err != nil {
		return nil, fmt.Errorf("loanPaymentTx: %w", err)
	}

	m, err := s.members.GetForUpdate(ctx, tx, peek.MemberID)
	if err != nil {
		return nil, fmt.Errorf("loanPaymentTx: %w", err)
	}

	loan, err := s.loans.GetForUpdate(ctx, tx, req.LoanID)
	if err != nil {
		return nil, fmt.Errorf("loanPaymentTx: %w", err)
	}
	if loan.Status != domain.LoanStatusApproved {
		return nil, fmt.Errorf("loanPaymentTx: %w", domain.ErrLoanTerminal)
	}

	amount := req.Amount
	if full {
		amount = loan.Remaining
	}

	now := time.Now().UTC()
	if err := s.applyLoanPayment(ctx, tx, loan, m, amount, loan.ID, now); err != nil {
		return nil, fmt.Errorf("loanPaymentTx: %w", err)
	}

	m.Version++
	if err := s.members.UpdateBalances(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("loanPaymentTx: %w", err)
	}

	kind := domain.MovementLoanPayment
	if full {
		kind = domain.MovementLoanPrecancel
	}
	mv := &domain.Movement{
		ID:          uuid.New(),
		MemberID:    m.ID,
		Kind:        kind,
		ReferenceID: loan.ID,
		Amount:      amount,
		RecordedBy:  req.AdminID,
		CreatedAt:   now,
	}
	if err := s.movements.Create(ctx, tx, mv); err != nil {
		return nil, fmt.Errorf("loanPaymentTx: %w", err)
	}

	cash, err := s.cash.GetForUpdate(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("loanPaymentTx: %w", err)
	}
	if err := s.cash.ApplyDelta(ctx, tx, amount, cash.Version, req.AdminID); err != nil {
		return nil, fmt.Errorf("loanPaymentTx: %w", err)
	}

	if loan.Status == domain.LoanStatusFinalized {
		s.notify(ctx, tx, m.ID, domain.NotificationLoanFinalized,
			"Loan settled", "Your loan has been paid in full.")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("loanPaymentTx: commit: %w", err)
	}
	return loan, nil
}

// applyLoanPayment mutates the loan and the member's loan bucket for one
// payment. The caller owns the row locks and the member balance write.
func (s *Service) applyLoanPayment(ctx context.Context, tx *sql.Tx, loan *domain.Loan, m *domain.Member, amount int64, referenceID uuid.UUID, now time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("applyLoanPayment: %w", domain.ErrInvalidAmount)
	}
	if amount > loan.Remaining {
		return fmt.Errorf("applyLoanPayment: %w", domain.ErrOverpayment)
	}

	loan.Payments = append(loan.Payments, domain.LoanPayment{
		DepositID: referenceID,
		Amount:    amount,
		PaidAt:    now,
	})
	loan.Remaining -= amount
	loan.MonthsRemaining = rules.MonthsRemaining(loan.Remaining, loan.MonthlyInstallment)
	loan.LastPaymentAt = &now

	if loan.Remaining <= 0 {
		loan.Status = domain.LoanStatusFinalized
		loan.FinalizedAt = &now
		loan.NextPaymentAt = nil
	} else {
		next := now.AddDate(0, 1, 0)
		loan.NextPaymentAt = &next
	}

	if err := s.loans.RecordPayment(ctx, tx, loan); err != nil {
		return fmt.Errorf("applyLoanPayment: %w", err)
	}

	m.LoansTotal -= amount
	if m.LoansTotal < 0 {
		m.LoansTotal = 0
	}
	return nil
}
