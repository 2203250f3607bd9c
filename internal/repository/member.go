package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/domain"
)

const memberColumns = `id, name, email, category, status,
	savings_total, fixed_term_total, certificate_total, loans_total, penalties_total,
	annual_progress, annual_target, carryover, version, joined_at, created_at`

type MemberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, id,
	)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrMemberNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return m, nil
}

func (r *MemberRepository) List(ctx context.Context) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return members, nil
}

func (r *MemberRepository) Create(ctx context.Context, m *domain.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (
			id, name, email, category, status,
			savings_total, fixed_term_total, certificate_total, loans_total, penalties_total,
			annual_progress, annual_target, carryover, version, joined_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		m.ID, m.Name, m.Email, m.Category, m.Status,
		m.SavingsTotal, m.FixedTermTotal, m.CertificateTotal, m.LoansTotal, m.PenaltiesTotal,
		m.AnnualProgress, m.AnnualTarget, m.Carryover, m.Version, m.JoinedAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *MemberRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Member, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE`, id,
	)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrMemberNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return m, nil
}

// UpdateBalances writes every balance bucket plus the annual-progress fields
// in one compare-and-swap guarded by the version column. The caller passes
// the member as it should look after the transaction, version already
// incremented.
func (r *MemberRepository) UpdateBalances(ctx context.Context, tx *sql.Tx, m *domain.Member) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE members SET
			savings_total = $1, fixed_term_total = $2, certificate_total = $3,
			loans_total = $4, penalties_total = $5,
			annual_progress = $6, annual_target = $7, carryover = $8,
			version = $9
		WHERE id = $10 AND version = $11`,
		m.SavingsTotal, m.FixedTermTotal, m.CertificateTotal,
		m.LoansTotal, m.PenaltiesTotal,
		m.AnnualProgress, m.AnnualTarget, m.Carryover,
		m.Version, m.ID, m.Version-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalances: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalances: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalances: %w", domain.ErrVersionConflict)
	}
	return nil
}

func (r *MemberRepository) UpdateCategory(ctx context.Context, id uuid.UUID, category domain.MemberCategory, annualTarget int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE members SET category = $1, annual_target = $2 WHERE id = $3`,
		category, annualTarget, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateCategory: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateCategory: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateCategory: %w", domain.ErrMemberNotFound)
	}
	return nil
}

func scanMember(s scanner) (*domain.Member, error) {
	var m domain.Member
	err := s.Scan(
		&m.ID, &m.Name, &m.Email, &m.Category, &m.Status,
		&m.SavingsTotal, &m.FixedTermTotal, &m.CertificateTotal, &m.LoansTotal, &m.PenaltiesTotal,
		&m.AnnualProgress, &m.AnnualTarget, &m.Carryover, &m.Version, &m.JoinedAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
