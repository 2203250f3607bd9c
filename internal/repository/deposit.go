package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/domain"
)

const depositColumns = `id, member_id, kind, amount, status, description,
	detail, auto_allocated, months_covered, leftover_amount,
	penalty_amount, penalty_exempt, interest_rate_pct, document_url,
	voucher_url, voucher_hash, detected_payment_date,
	submitted_at, reviewed_at, reviewed_by, observations,
	deleted_at, deleted_by, delete_reason`

type DepositRepository struct {
	db *sql.DB
}

func NewDepositRepository(db *sql.DB) *DepositRepository {
	return &DepositRepository{db: db}
}

func (r *DepositRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+depositColumns+` FROM deposits WHERE id = $1 AND deleted_at IS NULL`, id,
	)
	d, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrDepositNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return d, nil
}

func (r *DepositRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Deposit, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+depositColumns+` FROM deposits WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id,
	)
	d, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrDepositNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return d, nil
}

func (r *DepositRepository) ListByStatus(ctx context.Context, status domain.DepositStatus) ([]domain.Deposit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+depositColumns+` FROM deposits
		WHERE status = $1 AND deleted_at IS NULL ORDER BY submitted_at`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByStatus: %w", err)
	}
	defer rows.Close()

	var deposits []domain.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByStatus: scan: %w", err)
		}
		deposits = append(deposits, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByStatus: rows: %w", err)
	}
	return deposits, nil
}

func (r *DepositRepository) Create(ctx context.Context, d *domain.Deposit) error {
	detail, months, err := marshalDepositJSON(d)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO deposits (
			id, member_id, kind, amount, status, description,
			detail, auto_allocated, months_covered, leftover_amount,
			penalty_amount, penalty_exempt, interest_rate_pct, document_url,
			voucher_url, voucher_hash, detected_payment_date,
			submitted_at, reviewed_at, reviewed_by, observations,
			deleted_at, deleted_by, delete_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		d.ID, d.MemberID, d.Kind, d.Amount, d.Status, d.Description,
		detail, d.AutoAllocated, months, d.LeftoverAmount,
		d.PenaltyAmount, d.PenaltyExempt, d.InterestRatePct, d.DocumentURL,
		d.VoucherURL, d.VoucherHash, d.DetectedPaymentDate,
		d.SubmittedAt, d.ReviewedAt, d.ReviewedBy, d.Observations,
		d.DeletedAt, d.DeletedBy, d.DeleteReason,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// MarkApproved writes the review outcome plus everything the approval
// computed: the final split, auto-allocation metadata, leftover and penalty.
func (r *DepositRepository) MarkApproved(ctx context.Context, tx *sql.Tx, d *domain.Deposit) error {
	detail, months, err := marshalDepositJSON(d)
	if err != nil {
		return fmt.Errorf("MarkApproved: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE deposits SET
			status = $1, detail = $2, auto_allocated = $3, months_covered = $4,
			leftover_amount = $5, penalty_amount = $6, penalty_exempt = $7,
			reviewed_at = $8, reviewed_by = $9, observations = $10
		WHERE id = $11 AND status = $12 AND deleted_at IS NULL`,
		domain.DepositStatusApproved, detail, d.AutoAllocated, months,
		d.LeftoverAmount, d.PenaltyAmount, d.PenaltyExempt,
		d.ReviewedAt, d.ReviewedBy, d.Observations,
		d.ID, domain.DepositStatusPending,
	)
	if err != nil {
		return fmt.Errorf("MarkApproved: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkApproved: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkApproved: %w", domain.ErrDepositTerminal)
	}
	return nil
}

func (r *DepositRepository) MarkRejected(ctx context.Context, tx *sql.Tx, id uuid.UUID, reviewedBy uuid.UUID, reviewedAt time.Time, observations string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE deposits SET status = $1, reviewed_at = $2, reviewed_by = $3, observations = $4
		WHERE id = $5 AND status = $6 AND deleted_at IS NULL`,
		domain.DepositStatusRejected, reviewedAt, reviewedBy, observations,
		id, domain.DepositStatusPending,
	)
	if err != nil {
		return fmt.Errorf("MarkRejected: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkRejected: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkRejected: %w", domain.ErrDepositTerminal)
	}
	return nil
}

// SoftDelete hides a deposit from every query without touching balances.
// Approved deposits keep their ledger effect; only the record disappears
// from listings.
func (r *DepositRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE deposits SET deleted_at = now(), deleted_by = $1, delete_reason = $2
		WHERE id = $3 AND deleted_at IS NULL`,
		deletedBy, reason, id,
	)
	if err != nil {
		return fmt.Errorf("SoftDelete: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SoftDelete: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SoftDelete: %w", domain.ErrDepositNotFound)
	}
	return nil
}

// FindApprovedByVoucherHash looks for another approved deposit that already
// used the same voucher, excluding the one under review.
func (r *DepositRepository) FindApprovedByVoucherHash(ctx context.Context, tx *sql.Tx, hash string, excludeID uuid.UUID) (*domain.Deposit, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+depositColumns+` FROM deposits
		WHERE voucher_hash = $1 AND status = $2 AND id <> $3 AND deleted_at IS NULL
		LIMIT 1`,
		hash, domain.DepositStatusApproved, excludeID,
	)
	d, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("FindApprovedByVoucherHash: %w", err)
	}
	return d, nil
}

func marshalDepositJSON(d *domain.Deposit) (detail, months []byte, err error) {
	if d.Detail != nil {
		detail, err = json.Marshal(d.Detail)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal detail: %w", err)
		}
	}
	if d.MonthsCovered != nil {
		months, err = json.Marshal(d.MonthsCovered)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal months: %w", err)
		}
	}
	return detail, months, nil
}

func scanDeposit(s scanner) (*domain.Deposit, error) {
	var (
		d      domain.Deposit
		detail []byte
		months []byte
	)
	err := s.Scan(
		&d.ID, &d.MemberID, &d.Kind, &d.Amount, &d.Status, &d.Description,
		&detail, &d.AutoAllocated, &months, &d.LeftoverAmount,
		&d.PenaltyAmount, &d.PenaltyExempt, &d.InterestRatePct, &d.DocumentURL,
		&d.VoucherURL, &d.VoucherHash, &d.DetectedPaymentDate,
		&d.SubmittedAt, &d.ReviewedAt, &d.ReviewedBy, &d.Observations,
		&d.DeletedAt, &d.DeletedBy, &d.DeleteReason,
	)
	if err != nil {
		return nil, err
	}
	if len(detail) > 0 {
		if err := json.Unmarshal(detail, &d.Detail); err != nil {
			return nil, fmt.Errorf("unmarshal detail: %w", err)
		}
	}
	if len(months) > 0 {
		if err := json.Unmarshal(months, &d.MonthsCovered); err != nil {
			return nil, fmt.Errorf("unmarshal months: %w", err)
		}
	}
	return &d, nil
}
