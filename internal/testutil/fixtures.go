package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cajacoop/admin-api/internal/domain"
)

var AdminID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func SeedAdmin(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	_, err = db.Exec(
		`INSERT INTO admins (id, email, name, password_hash)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		AdminID, "treasurer@cajacoop.internal", "Treasurer", string(hash),
	)
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return AdminID
}

func SeedMember(t *testing.T, db *sql.DB, name, email string) *domain.Member {
	t.Helper()

	joined := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &domain.Member{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Category:  domain.MemberCategoryFounding,
		Status:    domain.MemberStatusActive,
		JoinedAt:  &joined,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO members (id, name, email, category, status, joined_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Name, m.Email, m.Category, m.Status, m.JoinedAt, m.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed member %s: %v", email, err)
	}
	return m
}

func SeedPendingDeposit(t *testing.T, db *sql.DB, memberID uuid.UUID, kind domain.ContributionKind, amount int64, submittedAt time.Time) *domain.Deposit {
	t.Helper()

	d := &domain.Deposit{
		ID:          uuid.New(),
		MemberID:    memberID,
		Kind:        kind,
		Amount:      amount,
		Status:      domain.DepositStatusPending,
		SubmittedAt: submittedAt,
	}

	_, err := db.Exec(
		`INSERT INTO deposits (id, member_id, kind, amount, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.MemberID, d.Kind, d.Amount, d.Status, d.SubmittedAt,
	)
	if err != nil {
		t.Fatalf("seed deposit for %s: %v", memberID, err)
	}
	return d
}

func SeedPendingLoan(t *testing.T, db *sql.DB, memberID uuid.UUID, requested int64) *domain.Loan {
	t.Helper()

	l := &domain.Loan{
		ID:              uuid.New(),
		MemberID:        memberID,
		RequestedAmount: requested,
		Status:          domain.LoanStatusPending,
		CreatedAt:       time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO loans (id, member_id, requested_amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.MemberID, l.RequestedAmount, l.Status, l.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed loan for %s: %v", memberID, err)
	}
	return l
}

func SetCashBalance(t *testing.T, db *sql.DB, balance int64) {
	t.Helper()

	if _, err := db.Exec(`UPDATE cash_ledger SET balance = $1 WHERE id = 1`, balance); err != nil {
		t.Fatalf("set cash balance: %v", err)
	}
}

func GetCashBalance(t *testing.T, db *sql.DB) int64 {
	t.Helper()

	var balance int64
	if err := db.QueryRow(`SELECT balance FROM cash_ledger WHERE id = 1`).Scan(&balance); err != nil {
		t.Fatalf("get cash balance: %v", err)
	}
	return balance
}

func GetMemberRow(t *testing.T, db *sql.DB, memberID uuid.UUID) *domain.Member {
	t.Helper()

	m := &domain.Member{ID: memberID}
	err := db.QueryRow(
		`SELECT savings_total, fixed_term_total, certificate_total, loans_total,
		        penalties_total, annual_progress, annual_target, carryover, version
		 FROM members WHERE id = $1`, memberID,
	).Scan(
		&m.SavingsTotal, &m.FixedTermTotal, &m.CertificateTotal, &m.LoansTotal,
		&m.PenaltiesTotal, &m.AnnualProgress, &m.AnnualTarget, &m.Carryover, &m.Version,
	)
	if err != nil {
		t.Fatalf("get member row %s: %v", memberID, err)
	}
	return m
}

func CountMovements(t *testing.T, db *sql.DB, referenceID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM movements WHERE reference_id = $1`, referenceID).Scan(&count)
	if err != nil {
		t.Fatalf("count movements for %s: %v", referenceID, err)
	}
	return count
}
