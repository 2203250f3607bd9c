package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/cajacoop/admin-api/internal/repository"
	"github.com/cajacoop/admin-api/internal/rules"
)

type memberStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	List(ctx context.Context) ([]domain.Member, error)
	Create(ctx context.Context, m *domain.Member) error
	UpdateCategory(ctx context.Context, id uuid.UUID, category domain.MemberCategory, annualTarget int64) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Member, error)
	UpdateBalances(ctx context.Context, tx *sql.Tx, m *domain.Member) error
}

type movementStore interface {
	Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error
	SumSavingsCredits(ctx context.Context, memberID uuid.UUID, until time.Time) (int64, error)
}

type policyStore interface {
	GetPatch(ctx context.Context, name string) (*rules.PolicyPatch, error)
}

type notificationStore interface {
	GetPending(ctx context.Context, limit int) ([]domain.Notification, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.NotificationStatus) error
}

// resolveStoredPolicy merges both config layers over defaults, the same way
// the approval service does.
func resolveStoredPolicy(ctx context.Context, store policyStore) (domain.Policy, error) {
	general, err := store.GetPatch(ctx, repository.ConfigNameGeneral)
	if err != nil {
		return domain.Policy{}, err
	}
	params, err := store.GetPatch(ctx, repository.ConfigNameParameters)
	if err != nil {
		return domain.Policy{}, err
	}
	return rules.ResolvePolicy(general, params), nil
}
