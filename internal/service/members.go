package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/cajacoop/admin-api/internal/logging"
)

type MemberService struct {
	members   memberStore
	appConfig policyStore
}

func NewMemberService(members memberStore, appConfig policyStore) *MemberService {
	return &MemberService{members: members, appConfig: appConfig}
}

func (s *MemberService) CreateMember(ctx context.Context, name, email string, joinedAt *time.Time) (*domain.Member, error) {
	if name == "" || email == "" {
		return nil, fmt.Errorf("CreateMember: %w", domain.ErrInvalidRequest)
	}

	now := time.Now().UTC()
	m := &domain.Member{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Category:  domain.MemberCategoryNew,
		Status:    domain.MemberStatusActive,
		JoinedAt:  joinedAt,
		CreatedAt: now,
	}
	if err := s.members.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("CreateMember: %w", err)
	}

	logging.FromContext(ctx).Info("member created", "member_id", m.ID, "email", email)
	return m, nil
}

func (s *MemberService) ListMembers(ctx context.Context) ([]domain.Member, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListMembers: %w", err)
	}
	return members, nil
}

type CategorizeResult struct {
	Founding int `json:"founding"`
	New      int `json:"new"`
}

// CategorizeMembers reclassifies everyone against the foundation date and
// caches each member's annual savings target: founding members owe the full
// year, later joiners a prorated share of it.
func (s *MemberService) CategorizeMembers(ctx context.Context, foundationDate time.Time) (*CategorizeResult, error) {
	policy, err := resolveStoredPolicy(ctx, s.appConfig)
	if err != nil {
		return nil, fmt.Errorf("CategorizeMembers: %w", err)
	}

	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("CategorizeMembers: %w", err)
	}

	fullTarget := policy.MonthlyUnit * int64(policy.AnnualMonths)
	res := &CategorizeResult{}
	for i := range members {
		m := &members[i]

		category := domain.MemberCategoryFounding
		target := fullTarget
		if m.JoinedAt != nil && m.JoinedAt.After(foundationDate) {
			category = domain.MemberCategoryNew
			target = proratedTarget(policy, *m.JoinedAt)
		}

		if err := s.members.UpdateCategory(ctx, m.ID, category, target); err != nil {
			return nil, fmt.Errorf("CategorizeMembers: %w", err)
		}
		if category == domain.MemberCategoryFounding {
			res.Founding++
		} else {
			res.New++
		}
	}

	logging.FromContext(ctx).Info("members categorized",
		"founding", res.Founding, "new", res.New)
	return res, nil
}

// proratedTarget charges a joiner only for the months from joining to the
// end of the fiscal year.
func proratedTarget(policy domain.Policy, joined time.Time) int64 {
	if joined.Year() > policy.PenaltyYear {
		return 0
	}
	if joined.Year() < policy.PenaltyYear {
		return policy.MonthlyUnit * int64(policy.AnnualMonths)
	}
	months := policy.AnnualMonths - int(joined.Month()) + 1
	if months < 0 {
		months = 0
	}
	return policy.MonthlyUnit * int64(months)
}
