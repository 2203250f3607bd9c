package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/domain"
)

// CashLedgerRepository manages the cooperative's single cash row. Every
// approval touches it, so it is always locked last, after the member rows.
type CashLedgerRepository struct {
	db *sql.DB
}

func NewCashLedgerRepository(db *sql.DB) *CashLedgerRepository {
	return &CashLedgerRepository{db: db}
}

func (r *CashLedgerRepository) Get(ctx context.Context) (*domain.CashLedger, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT balance, version, updated_by, updated_at FROM cash_ledger WHERE id = 1`,
	)
	c, err := scanCashLedger(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

func (r *CashLedgerRepository) GetForUpdate(ctx context.Context, tx *sql.Tx) (*domain.CashLedger, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT balance, version, updated_by, updated_at FROM cash_ledger WHERE id = 1 FOR UPDATE`,
	)
	c, err := scanCashLedger(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return c, nil
}

// ApplyDelta moves the balance by delta with a version compare-and-swap.
// expectedVersion is the version read under lock; the row ends at
// expectedVersion+1 or the update reports a conflict.
func (r *CashLedgerRepository) ApplyDelta(ctx context.Context, tx *sql.Tx, delta int64, expectedVersion int64, updatedBy uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE cash_ledger SET
			balance = balance + $1, version = version + 1, updated_by = $2, updated_at = now()
		WHERE id = 1 AND version = $3`,
		delta, updatedBy, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("ApplyDelta: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ApplyDelta: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("ApplyDelta: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanCashLedger(s scanner) (*domain.CashLedger, error) {
	var c domain.CashLedger
	if err := s.Scan(&c.Balance, &c.Version, &c.UpdatedBy, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
