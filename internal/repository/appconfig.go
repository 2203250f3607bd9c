package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/rules"
)

// Config rows are layered: the base row is overridden by the parameters row
// when both exist, and anything still unset falls back to built-in defaults.
const (
	ConfigNameGeneral    = "general"
	ConfigNameParameters = "global_parameters"
)

type AppConfigRepository struct {
	db *sql.DB
}

func NewAppConfigRepository(db *sql.DB) *AppConfigRepository {
	return &AppConfigRepository{db: db}
}

// GetPatch loads one named config layer, nil when the row does not exist.
func (r *AppConfigRepository) GetPatch(ctx context.Context, name string) (*rules.PolicyPatch, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM app_config WHERE name = $1`, name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetPatch: %w", err)
	}

	var patch rules.PolicyPatch
	if err := json.Unmarshal(payload, &patch); err != nil {
		return nil, fmt.Errorf("GetPatch: unmarshal %q: %w", name, err)
	}
	return &patch, nil
}

func (r *AppConfigRepository) Upsert(ctx context.Context, name string, patch *rules.PolicyPatch, updatedBy uuid.UUID) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("Upsert: marshal: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO app_config (name, payload, updated_by, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE SET payload = $2, updated_by = $3, updated_at = now()`,
		name, payload, updatedBy,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}
