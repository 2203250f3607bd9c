package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/domain"
)

const movementColumns = `id, member_id, kind, reference_id, amount,
	description, recorded_by, created_at`

type MovementRepository struct {
	db *sql.DB
}

func NewMovementRepository(db *sql.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

func (r *MovementRepository) Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO movements (
			id, member_id, kind, reference_id, amount, description, recorded_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.MemberID, m.Kind, m.ReferenceID, m.Amount,
		m.Description, m.RecordedBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *MovementRepository) ListByMember(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]domain.Movement, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM movements WHERE member_id = $1`, memberID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByMember: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements
		WHERE member_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		memberID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByMember: %w", err)
	}
	defer rows.Close()

	movements, err := collectMovements(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByMember: %w", err)
	}
	return movements, total, nil
}

func (r *MovementRepository) ListRecent(ctx context.Context, limit int) ([]domain.Movement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListRecent: %w", err)
	}
	defer rows.Close()

	movements, err := collectMovements(rows)
	if err != nil {
		return nil, fmt.Errorf("ListRecent: %w", err)
	}
	return movements, nil
}

func (r *MovementRepository) ListByReference(ctx context.Context, referenceID uuid.UUID) ([]domain.Movement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements
		WHERE reference_id = $1 ORDER BY created_at`, referenceID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByReference: %w", err)
	}
	defer rows.Close()

	movements, err := collectMovements(rows)
	if err != nil {
		return nil, fmt.Errorf("ListByReference: %w", err)
	}
	return movements, nil
}

// SumSavingsCredits totals a member's approved savings contributions up to a
// cutover instant. The year-cutover snapshot runs on this.
func (r *MovementRepository) SumSavingsCredits(ctx context.Context, memberID uuid.UUID, until time.Time) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM movements
		WHERE member_id = $1 AND kind IN ($2, $3) AND amount > 0 AND created_at < $4`,
		memberID, domain.MovementDepositApproved, domain.MovementDirectCredit, until,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("SumSavingsCredits: %w", err)
	}
	return total, nil
}

func collectMovements(rows *sql.Rows) ([]domain.Movement, error) {
	var movements []domain.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return movements, nil
}

func scanMovement(s scanner) (*domain.Movement, error) {
	var m domain.Movement
	err := s.Scan(
		&m.ID, &m.MemberID, &m.Kind, &m.ReferenceID, &m.Amount,
		&m.Description, &m.RecordedBy, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
