package service

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

type CarryoverService struct {
	members   memberStore
	movements movementStore
	appConfig policyStore
	db        *sql.DB
}

func NewCarryoverService(members memberStore, movements movementStore, appConfig policyStore, db *sql.DB) *CarryoverService {
	return &CarryoverService{members: members, movements: movements, appConfig: appConfig, db: db}
}

type CutoverResult struct {
	Members   int   `json:"members"`
	CarriedIn int64 `json:"carried_in"`
}

// YearCutover closes the savings year at the given instant. For each member
// it totals the approved savings up to the cutover, computes the surplus
// over their annual target and seeds the new year's progress with it,
// capped at the target. One transaction per member keeps a failed member
// from rolling the whole run back.
func (s *CarryoverService) YearCutover(ctx context.Context, adminID uuid.UUID, cutover time.Time) (*CutoverResult, error) {
	policy, err := resolveStoredPolicy(ctx, s.appConfig)
	if err != nil {
		return nil, fmt.Errorf("YearCutover: %w", err)
	}

	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("YearCutover: %w", err)
	}

	defaultTarget := policy.MonthlyUnit * int64(policy.AnnualMonths)
	res := &CutoverResult{}
	for i := range members {
		m := &members[i]
		carried, err := s.cutoverMember(ctx, m, adminID, cutover, defaultTarget)
		if err != nil {
			return nil, fmt.Errorf("YearCutover: member %s: %w", m.ID, err)
		}
		res.Members++
		res.CarriedIn += carried
	}

	logging.FromContext(ctx).Info("year cutover complete",
		"members", res.Members, "carried_in", res.CarriedIn)
	return res, nil
}

func (s *CarryoverService) cutoverMember(ctx context.Context, m *domain.Member, adminID uuid.UUID, cutover time.Time, defaultTarget int64) (int64, error) {
	contributed, err := s.movements.SumSavingsCredits(ctx, m.ID, cutover)
	if err != nil {
		return 0, fmt.Errorf("cutoverMember: %w", err)
	}

	target := m.AnnualTarget
	if target == 0 {
		target = defaultTarget
	}
	carry, initial := rules.Carryover(contributed, target)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("cutoverMember: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.members.GetForUpdate(ctx, tx, m.ID)
	if err != nil {
		return 0, fmt.Errorf("cutoverMember: %w", err)
	}

	locked.Carryover = carry
	locked.AnnualProgress = initial
	locked.AnnualTarget = target
	locked.Version++
	if err := s.members.UpdateBalances(ctx, tx, locked); err != nil {
		return 0, fmt.Errorf("cutoverMember: %w", err)
	}

	mv := &domain.Movement{
		ID:          uuid.New(),
		MemberID:    m.ID,
		Kind:        domain.MovementYearCutover,
		ReferenceID: m.ID,
		Amount:      initial,
		Description: fmt.Sprintf("year cutover: contributed %d against target %d", contributed, target),
		RecordedBy:  adminID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.movements.Create(ctx, tx, mv); err != nil {
		return 0, fmt.Errorf("cutoverMember: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("cutoverMember: commit: %w", err)
	}
	return initial, nil
}
