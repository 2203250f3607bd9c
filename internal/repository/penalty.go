package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/domain"
)

const penaltyColumns = `id, member_id, amount, reason, status,
	paid_by_deposit, paid_at, created_at`

type PenaltyRepository struct {
	db *sql.DB
}

func NewPenaltyRepository(db *sql.DB) *PenaltyRepository {
	return &PenaltyRepository{db: db}
}

func (r *PenaltyRepository) Create(ctx context.Context, tx *sql.Tx, p *domain.Penalty) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO penalties (
			id, member_id, amount, reason, status, paid_by_deposit, paid_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.MemberID, p.Amount, p.Reason, p.Status,
		p.PaidByDeposit, p.PaidAt, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PenaltyRepository) ListPendingByMember(ctx context.Context, tx *sql.Tx, memberID uuid.UUID) ([]domain.Penalty, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+penaltyColumns+` FROM penalties
		WHERE member_id = $1 AND status = $2 ORDER BY created_at FOR UPDATE`,
		memberID, domain.PenaltyStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("ListPendingByMember: %w", err)
	}
	defer rows.Close()

	var penalties []domain.Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPendingByMember: scan: %w", err)
		}
		penalties = append(penalties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListPendingByMember: rows: %w", err)
	}
	return penalties, nil
}

// MarkPaidByMember settles every pending penalty the member has against the
// deposit that paid them.
func (r *PenaltyRepository) MarkPaidByMember(ctx context.Context, tx *sql.Tx, memberID uuid.UUID, depositID uuid.UUID, paidAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE penalties SET status = $1, paid_by_deposit = $2, paid_at = $3
		WHERE member_id = $4 AND status = $5`,
		domain.PenaltyStatusPaid, depositID, paidAt,
		memberID, domain.PenaltyStatusPending,
	)
	if err != nil {
		return fmt.Errorf("MarkPaidByMember: %w", err)
	}
	return nil
}

func scanPenalty(s scanner) (*domain.Penalty, error) {
	var p domain.Penalty
	err := s.Scan(
		&p.ID, &p.MemberID, &p.Amount, &p.Reason, &p.Status,
		&p.PaidByDeposit, &p.PaidAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
