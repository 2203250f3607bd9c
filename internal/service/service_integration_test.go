package service_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cajacoop/admin-api/internal/repository"
	"github.com/cajacoop/admin-api/internal/service"
	"github.com/cajacoop/admin-api/internal/testutil"
)

func TestCategorizeMembers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	members := repository.NewMemberRepository(db)
	appConfig := repository.NewAppConfigRepository(db)
	svc := service.NewMemberService(members, appConfig)
	ctx := context.Background()

	foundation := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	founder := testutil.SeedMember(t, db, "Founder", "founder@test.com")
	joiner := testutil.SeedMember(t, db, "Joiner", "joiner@test.com")
	// Founder joined before the foundation date, joiner in July.
	_, err := db.Exec(`UPDATE members SET joined_at = $1 WHERE id = $2`,
		time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), founder.ID)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE members SET joined_at = $1 WHERE id = $2`,
		time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC), joiner.ID)
	require.NoError(t, err)

	res, err := svc.CategorizeMembers(ctx, foundation)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Founding)
	assert.Equal(t, 1, res.New)

	// Founder owes the full year, the July joiner six months of quota.
	founderRow := testutil.GetMemberRow(t, db, founder.ID)
	assert.Equal(t, int64(12*2500), founderRow.AnnualTarget)

	joinerRow := testutil.GetMemberRow(t, db, joiner.ID)
	assert.Equal(t, int64(6*2500), joinerRow.AnnualTarget)
}

func TestYearCutover(t *testing.T) {
	db := testutil.SetupTestDB(t)
	members := repository.NewMemberRepository(db)
	movements := repository.NewMovementRepository(db)
	appConfig := repository.NewAppConfigRepository(db)
	svc := service.NewCarryoverService(members, movements, appConfig, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	ahead := testutil.SeedMember(t, db, "Ahead", "ahead@test.com")
	behind := testutil.SeedMember(t, db, "Behind", "behind@test.com")

	// Ahead contributed 35000 against a 30000 target; Behind only 10000.
	_, err := db.Exec(`UPDATE members SET annual_target = 30000, annual_progress = 35000 WHERE id = $1`, ahead.ID)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE members SET annual_target = 30000, annual_progress = 10000 WHERE id = $1`, behind.ID)
	require.NoError(t, err)

	seedCredit := func(memberID any, amount int64) {
		_, err := db.Exec(
			`INSERT INTO movements (id, member_id, kind, reference_id, amount, recorded_by, created_at)
			 VALUES (gen_random_uuid(), $1, 'deposit_approved', gen_random_uuid(), $2, $3, $4)`,
			memberID, amount, admin, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}
	seedCredit(ahead.ID, 20000)
	seedCredit(ahead.ID, 15000)
	seedCredit(behind.ID, 10000)

	cutover := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := svc.YearCutover(ctx, admin, cutover)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Members)
	assert.Equal(t, int64(5000), res.CarriedIn)

	aheadRow := testutil.GetMemberRow(t, db, ahead.ID)
	assert.Equal(t, int64(5000), aheadRow.Carryover)
	assert.Equal(t, int64(5000), aheadRow.AnnualProgress)

	behindRow := testutil.GetMemberRow(t, db, behind.ID)
	assert.Equal(t, int64(0), behindRow.Carryover)
	assert.Equal(t, int64(0), behindRow.AnnualProgress)
}

func TestWriteMembersCSV(t *testing.T) {
	db := testutil.SetupTestDB(t)
	members := repository.NewMemberRepository(db)
	svc := service.NewReportService(members)
	ctx := context.Background()

	m := testutil.SeedMember(t, db, "Reporte", "reporte@test.com")
	_, err := db.Exec(
		`UPDATE members SET savings_total = 123450, loans_total = 50000 WHERE id = $1`, m.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteMembersCSV(ctx, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,email,category,savings,fixed_term,certificates,loans,penalties,net", lines[0])
	assert.Contains(t, lines[1], "Reporte")
	assert.Contains(t, lines[1], "1234.50")
	assert.Contains(t, lines[1], "500.00")
	assert.Contains(t, lines[1], "734.50")
	assert.True(t, strings.HasPrefix(lines[2], "TOTAL"))
}
