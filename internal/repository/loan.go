package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/domain"
)

const loanColumns = `id, member_id, requested_amount, approved_amount,
	interest_rate_pct, term_months, monthly_installment, remaining, months_remaining,
	status, payments, contract_url, observations, approved_by,
	started_at, ends_at, next_payment_at, last_payment_at, finalized_at, created_at`

type LoanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id,
	)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrLoanNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return l, nil
}

func (r *LoanRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Loan, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id,
	)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrLoanNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return l, nil
}

// GetActiveByMember locks the member's open loan, oldest first when several
// exist.
func (r *LoanRepository) GetActiveByMember(ctx context.Context, tx *sql.Tx, memberID uuid.UUID) (*domain.Loan, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans
		WHERE member_id = $1 AND status = $2 ORDER BY created_at LIMIT 1 FOR UPDATE`,
		memberID, domain.LoanStatusApproved,
	)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetActiveByMember: %w", domain.ErrLoanNotFound)
		}
		return nil, fmt.Errorf("GetActiveByMember: %w", err)
	}
	return l, nil
}

func (r *LoanRepository) List(ctx context.Context, status domain.LoanStatus) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans ORDER BY created_at DESC`
	args := []any{}
	if status != "" {
		query = `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 ORDER BY created_at DESC`
		args = append(args, status)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		loans = append(loans, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return loans, nil
}

func (r *LoanRepository) Create(ctx context.Context, l *domain.Loan) error {
	payments, err := json.Marshal(l.Payments)
	if err != nil {
		return fmt.Errorf("Create: marshal payments: %w", err)
	}
	if l.Payments == nil {
		payments = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO loans (
			id, member_id, requested_amount, approved_amount,
			interest_rate_pct, term_months, monthly_installment, remaining, months_remaining,
			status, payments, contract_url, observations, approved_by,
			started_at, ends_at, next_payment_at, last_payment_at, finalized_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20)`,
		l.ID, l.MemberID, l.RequestedAmount, l.ApprovedAmount,
		l.InterestRatePct, l.TermMonths, l.MonthlyInstallment, l.Remaining, l.MonthsRemaining,
		l.Status, payments, l.ContractURL, l.Observations, l.ApprovedBy,
		l.StartedAt, l.EndsAt, l.NextPaymentAt, l.LastPaymentAt, l.FinalizedAt, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// Activate flips a pending loan to approved with its amortization schedule.
func (r *LoanRepository) Activate(ctx context.Context, tx *sql.Tx, l *domain.Loan) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET
			status = $1, approved_amount = $2, interest_rate_pct = $3, term_months = $4,
			monthly_installment = $5, remaining = $6, months_remaining = $7,
			approved_by = $8, started_at = $9, ends_at = $10, next_payment_at = $11
		WHERE id = $12 AND status = $13`,
		domain.LoanStatusApproved, l.ApprovedAmount, l.InterestRatePct, l.TermMonths,
		l.MonthlyInstallment, l.Remaining, l.MonthsRemaining,
		l.ApprovedBy, l.StartedAt, l.EndsAt, l.NextPaymentAt,
		l.ID, domain.LoanStatusPending,
	)
	if err != nil {
		return fmt.Errorf("Activate: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Activate: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Activate: %w", domain.ErrLoanTerminal)
	}
	return nil
}

func (r *LoanRepository) Reject(ctx context.Context, tx *sql.Tx, id uuid.UUID, rejectedBy uuid.UUID, observations string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET status = $1, approved_by = $2, observations = $3
		WHERE id = $4 AND status = $5`,
		domain.LoanStatusRejected, rejectedBy, observations,
		id, domain.LoanStatusPending,
	)
	if err != nil {
		return fmt.Errorf("Reject: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Reject: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Reject: %w", domain.ErrLoanTerminal)
	}
	return nil
}

// RecordPayment persists the loan after a payment was applied: the appended
// history, the new remaining balance, the schedule fields and, when the
// balance reached zero, the finalized status.
func (r *LoanRepository) RecordPayment(ctx context.Context, tx *sql.Tx, l *domain.Loan) error {
	payments, err := json.Marshal(l.Payments)
	if err != nil {
		return fmt.Errorf("RecordPayment: marshal payments: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET
			payments = $1, remaining = $2, months_remaining = $3,
			status = $4, last_payment_at = $5, next_payment_at = $6, finalized_at = $7
		WHERE id = $8 AND status = $9`,
		payments, l.Remaining, l.MonthsRemaining,
		l.Status, l.LastPaymentAt, l.NextPaymentAt, l.FinalizedAt,
		l.ID, domain.LoanStatusApproved,
	)
	if err != nil {
		return fmt.Errorf("RecordPayment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("RecordPayment: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("RecordPayment: %w", domain.ErrLoanTerminal)
	}
	return nil
}

func scanLoan(s scanner) (*domain.Loan, error) {
	var (
		l        domain.Loan
		payments []byte
	)
	err := s.Scan(
		&l.ID, &l.MemberID, &l.RequestedAmount, &l.ApprovedAmount,
		&l.InterestRatePct, &l.TermMonths, &l.MonthlyInstallment, &l.Remaining, &l.MonthsRemaining,
		&l.Status, &payments, &l.ContractURL, &l.Observations, &l.ApprovedBy,
		&l.StartedAt, &l.EndsAt, &l.NextPaymentAt, &l.LastPaymentAt, &l.FinalizedAt, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(payments) > 0 {
		if err := json.Unmarshal(payments, &l.Payments); err != nil {
			return nil, fmt.Errorf("unmarshal payments: %w", err)
		}
	}
	return &l, nil
}
