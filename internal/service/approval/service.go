package approval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cajacoop/admin-api/internal/config"
	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/cajacoop/admin-api/internal/logging"
	"github.com/cajacoop/admin-api/internal/repository"
	"github.com/cajacoop/admin-api/internal/rules"
)

type memberRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	List(ctx context.Context) ([]domain.Member, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Member, error)
	UpdateBalances(ctx context.Context, tx *sql.Tx, m *domain.Member) error
}

type depositRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Deposit, error)
	MarkApproved(ctx context.Context, tx *sql.Tx, d *domain.Deposit) error
	MarkRejected(ctx context.Context, tx *sql.Tx, id uuid.UUID, reviewedBy uuid.UUID, reviewedAt time.Time, observations string) error
	FindApprovedByVoucherHash(ctx context.Context, tx *sql.Tx, hash string, excludeID uuid.UUID) (*domain.Deposit, error)
	Create(ctx context.Context, d *domain.Deposit) error
}

type loanRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Loan, error)
	GetActiveByMember(ctx context.Context, tx *sql.Tx, memberID uuid.UUID) (*domain.Loan, error)
	Activate(ctx context.Context, tx *sql.Tx, l *domain.Loan) error
	Reject(ctx context.Context, tx *sql.Tx, id uuid.UUID, rejectedBy uuid.UUID, observations string) error
	RecordPayment(ctx context.Context, tx *sql.Tx, l *domain.Loan) error
}

type movementRepo interface {
	Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error
}

type cashRepo interface {
	Get(ctx context.Context) (*domain.CashLedger, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx) (*domain.CashLedger, error)
	ApplyDelta(ctx context.Context, tx *sql.Tx, delta int64, expectedVersion int64, updatedBy uuid.UUID) error
}

type configRepo interface {
	GetPatch(ctx context.Context, name string) (*rules.PolicyPatch, error)
}

type penaltyRepo interface {
	Create(ctx context.Context, tx *sql.Tx, p *domain.Penalty) error
	MarkPaidByMember(ctx context.Context, tx *sql.Tx, memberID uuid.UUID, depositID uuid.UUID, paidAt time.Time) error
}

type notificationRepo interface {
	CreateTx(ctx context.Context, tx *sql.Tx, n *domain.Notification) error
}

type Service struct {
	members       memberRepo
	deposits      depositRepo
	loans         loanRepo
	movements     movementRepo
	cash          cashRepo
	appConfig     configRepo
	penalties     penaltyRepo
	notifications notificationRepo
	db            *sql.DB
	config        *config.Config
}

func NewService(
	members memberRepo,
	deposits depositRepo,
	loans loanRepo,
	movements movementRepo,
	cash cashRepo,
	appConfig configRepo,
	penalties penaltyRepo,
	notifications notificationRepo,
	db *sql.DB,
	cfg *config.Config,
) *Service {
	return &Service{
		members:       members,
		deposits:      deposits,
		loans:         loans,
		movements:     movements,
		cash:          cash,
		appConfig:     appConfig,
		penalties:     penalties,
		notifications: notifications,
		db:            db,
		config:        cfg,
	}
}

// resolvePolicy reads both config layers and merges them over defaults.
// Missing rows are fine; the cooperative ran for months with no config at
// all.
func (s *Service) resolvePolicy(ctx context.Context) (domain.Policy, error) {
	general, err := s.appConfig.GetPatch(ctx, repository.ConfigNameGeneral)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("resolvePolicy: %w", err)
	}
	params, err := s.appConfig.GetPatch(ctx, repository.ConfigNameParameters)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("resolvePolicy: %w", err)
	}
	return rules.ResolvePolicy(general, params), nil
}

// withRetry re-runs fn after lock conflicts. Row locks make conflicts rare,
// but two admins approving deposits for the same member can still race the
// version check.
func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := s.config.TxRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil || !retryable(err) {
			return err
		}
		logging.FromContext(ctx).Warn("transaction conflict, retrying", "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 25 * time.Millisecond):
		}
	}
	return fmt.Errorf("withRetry: %w", domain.ErrTransactionConflict)
}

func retryable(err error) bool {
	if errors.Is(err, domain.ErrVersionConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure and deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// lockMembersInOrder acquires row locks in sorted id order so concurrent
// approvals spanning the same members never deadlock.
func lockMembersInOrder(ctx context.Context, tx *sql.Tx, members memberRepo, ids []uuid.UUID) (map[uuid.UUID]*domain.Member, error) {
	sorted := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.Member, len(sorted))
	for _, id := range sorted {
		m, err := members.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockMembersInOrder: %w", err)
		}
		result[id] = m
	}
	return result, nil
}

func (s *Service) notify(ctx context.Context, tx *sql.Tx, memberID uuid.UUID, kind domain.NotificationKind, title, message string) {
	n := &domain.Notification{
		ID:        uuid.New(),
		MemberID:  memberID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		Status:    domain.NotificationStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notifications.CreateTx(ctx, tx, n); err != nil {
		// Notifications are best effort; the ledger change matters more.
		logging.FromContext(ctx).Error("notification enqueue failed", "member_id", memberID, "error", err)
	}
}
