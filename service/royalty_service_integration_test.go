package service_test

import (
	"context"
	"testing"
	"time"

	"royalties/config"
	"royalties/events"
	"royalties/models"
	"royalties/repository"
	"royalties/repository/testutil"
	"royalties/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type integrationEnv struct {
	db        *testutil.TestDatabase
	royalties service.RoyaltyService
	reconcile service.ReconciliationService
	lines     *repository.RoyaltyRunLineRepository
	runs      *repository.RoyaltyRunRepository
}

func setupIntegration(t *testing.T) *integrationEnv {
	testDB := testutil.SetupTestDatabase(t)
	testutil.CreateSourceTables(t, testDB)

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, eventBus)
	cfg := config.DefaultRevenueConfig()

	return &integrationEnv{
		db:        testDB,
		royalties: service.NewRoyaltyService(uowFactory, cfg),
		reconcile: service.NewReconciliationService(uowFactory, cfg),
		lines:     repository.NewRoyaltyRunLineRepository(testDB.DB),
		runs:      repository.NewRoyaltyRunRepository(testDB.DB),
	}
}

func (env *integrationEnv) runGlobal(t *testing.T, periodStart, periodEnd time.Time) *models.RegionSummary {
	results := env.royalties.RunRoyalties(context.Background(), periodStart, periodEnd, nil)
	result := results["global"]
	require.Empty(t, result.Err)
	require.NotNil(t, result.Summary)
	return result.Summary
}

func sumBySource(lines []*models.RoyaltyRunLine, source models.Source) int64 {
	var total int64
	for _, l := range lines {
		if l.Source == source {
			total += l.AmountCents
		}
	}
	return total
}

func TestRoyaltyRun_Streams_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	env := setupIntegration(t)
	ctx := context.Background()

	periodStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	songID := testutil.SeedSong(t, env.db, 10, "Midnight Reverb")

	// 50 plays on day one, 40 on day two, both under the daily cap
	testutil.SeedStreams(t, env.db, songID, 500, time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), "global", 50)
	testutil.SeedStreams(t, env.db, songID, 500, time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC), "global", 40)

	summary := env.runGlobal(t, periodStart, periodEnd)
	assert.Equal(t, 1, summary.Streams)

	lines, err := env.lines.ListByRun(ctx, summary.RunID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	line := lines[0]
	assert.Equal(t, models.SourceStreams, line.Source)
	assert.Equal(t, models.WorkTypeSong, line.WorkType)
	require.NotNil(t, line.WorkID)
	assert.Equal(t, songID, *line.WorkID)
	require.NotNil(t, line.BandID)
	assert.Equal(t, int64(10), *line.BandID)
	// 90 plays at 30000 microcents each floors to 27000 cents
	assert.Equal(t, int64(27000), line.AmountCents)

	run, err := env.runs.GetByID(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
}

func TestRoyaltyRun_StreamCapBoundsFraud_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	env := setupIntegration(t)
	ctx := context.Background()

	periodStart := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

	songID := testutil.SeedSong(t, env.db, 10, "Loop Farm")

	// One account hammering a song 1000 times in a day counts as 50
	testutil.SeedStreams(t, env.db, songID, 666, time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC), "global", 1000)
	// A second account's 10 legitimate plays still count in full
	testutil.SeedStreams(t, env.db, songID, 777, time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC), "global", 10)

	summary := env.runGlobal(t, periodStart, periodEnd)

	lines, err := env.lines.ListByRun(ctx, summary.RunID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	// (50 capped + 10) plays at 30000 microcents = 18000 cents
	assert.Equal(t, int64(18000), lines[0].AmountCents)
}

func TestRoyaltyRun_DigitalCollaborationSplit_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	env := setupIntegration(t)
	ctx := context.Background()

	periodStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	songID := testutil.SeedSong(t, env.db, 10, "Duet")
	testutil.SeedCollaboration(t, env.db, "song", songID, 10, 20, 60, 40)
	testutil.SeedDigitalSale(t, env.db, "song", songID, 10000,
		time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), "global")

	summary := env.runGlobal(t, periodStart, periodEnd)
	assert.Equal(t, 2, summary.Digital)

	lines, err := env.lines.ListByRun(ctx, summary.RunID)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	byBand := map[int64]*models.RoyaltyRunLine{}
	for _, l := range lines {
		require.NotNil(t, l.BandID)
		byBand[*l.BandID] = l
	}

	require.Contains(t, byBand, int64(10))
	require.Contains(t, byBand, int64(20))
	assert.Equal(t, int64(6000), byBand[10].AmountCents)
	assert.Equal(t, int64(4000), byBand[20].AmountCents)
	require.NotNil(t, byBand[10].CollaboratorBandID)
	assert.Equal(t, int64(20), *byBand[10].CollaboratorBandID)
	assert.Equal(t, "60/40", byBand[10].Meta["split"])

	// No cent is created or lost by the split
	assert.Equal(t, int64(10000), sumBySource(lines, models.SourceDigital))
}

func TestRoyaltyRun_VinylNetsRefunds_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	env := setupIntegration(t)
	ctx := context.Background()

	periodStart := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

	albumID := testutil.SeedAlbum(t, env.db, 30, "Pressed in Gold")
	orderTime := time.Date(2024, 4, 10, 14, 0, 0, 0, time.UTC)

	// Five pressed, two refunded: three units pay out
	testutil.SeedVinylOrder(t, env.db, "confirmed", albumID, 5, 2, 2500, orderTime, "global")
	// Pending orders never pay out
	testutil.SeedVinylOrder(t, env.db, "pending", albumID, 10, 0, 2500, orderTime, "global")

	summary := env.runGlobal(t, periodStart, periodEnd)
	assert.Equal(t, 1, summary.Vinyl)

	lines, err := env.lines.ListByRun(ctx, summary.RunID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	line := lines[0]
	assert.Equal(t, models.SourceVinyl, line.Source)
	assert.Equal(t, models.WorkTypeAlbum, line.WorkType)
	assert.Equal(t, int64(7500), line.AmountCents)
	require.NotNil(t, line.BandID)
	assert.Equal(t, int64(30), *line.BandID)
}

func TestRoyaltyRun_SponsorshipAndReconciliation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	env := setupIntegration(t)
	ctx := context.Background()

	periodStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	eventTime := time.Date(2024, 5, 20, 19, 0, 0, 0, time.UTC)

	contractStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sponsorshipID := testutil.SeedSponsorship(t, env.db, 42, 901, true, contractStart, nil)
	testutil.SeedAdEvents(t, env.db, sponsorshipID, models.AdEventTypeImpression, eventTime, "global", 1)
	// Clicks are tracked but never monetized
	testutil.SeedAdEvents(t, env.db, sponsorshipID, models.AdEventTypeClick, eventTime, "global", 5)

	// A deactivated sponsorship's impressions never pay out
	inactiveID := testutil.SeedSponsorship(t, env.db, 43, 902, false, contractStart, nil)
	testutil.SeedAdEvents(t, env.db, inactiveID, models.AdEventTypeImpression, eventTime, "global", 100)

	summary := env.runGlobal(t, periodStart, periodEnd)
	assert.Equal(t, 1, summary.Sponsorship)

	lines, err := env.lines.ListByRun(ctx, summary.RunID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	line := lines[0]
	assert.Equal(t, models.WorkTypeVenue, line.WorkType)
	require.NotNil(t, line.WorkID)
	assert.Equal(t, int64(42), *line.WorkID)
	// 1 impression at 2 cents gross, 80% venue share floors to 1 cent
	assert.Equal(t, int64(1), line.AmountCents)

	result, err := env.reconcile.Reconcile(ctx, periodStart, periodEnd, "global")
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, result.RunID)
	assert.Equal(t, int64(1), result.SponsorshipPayoutCents)
}

func TestRoyaltyRun_Deterministic_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	env := setupIntegration(t)
	ctx := context.Background()

	periodStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	songID := testutil.SeedSong(t, env.db, 10, "Rerun")
	testutil.SeedStreams(t, env.db, songID, 500, time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC), "global", 25)
	testutil.SeedDigitalSale(t, env.db, "song", songID, 500,
		time.Date(2024, 6, 4, 11, 0, 0, 0, time.UTC), "global")

	first := env.runGlobal(t, periodStart, periodEnd)
	second := env.runGlobal(t, periodStart, periodEnd)

	// Re-running the same window creates a new run with identical totals
	assert.NotEqual(t, first.RunID, second.RunID)

	firstLines, err := env.lines.ListByRun(ctx, first.RunID)
	require.NoError(t, err)
	secondLines, err := env.lines.ListByRun(ctx, second.RunID)
	require.NoError(t, err)

	require.Len(t, secondLines, len(firstLines))
	for _, source := range models.ChannelOrder {
		assert.Equal(t, sumBySource(firstLines, source), sumBySource(secondLines, source))
	}
}

func TestRoyaltyRun_RegionScoping_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	env := setupIntegration(t)
	ctx := context.Background()

	periodStart := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)
	at := time.Date(2024, 7, 10, 10, 0, 0, 0, time.UTC)

	songID := testutil.SeedSong(t, env.db, 10, "Border Crossing")
	testutil.SeedStreams(t, env.db, songID, 500, at, "eu", 10)
	testutil.SeedStreams(t, env.db, songID, 501, at, "us", 20)

	results := env.royalties.RunRoyalties(ctx, periodStart, periodEnd, []string{"eu", "us"})
	require.Empty(t, results["eu"].Err)
	require.Empty(t, results["us"].Err)

	euLines, err := env.lines.ListByRun(ctx, results["eu"].Summary.RunID)
	require.NoError(t, err)
	usLines, err := env.lines.ListByRun(ctx, results["us"].Summary.RunID)
	require.NoError(t, err)

	require.Len(t, euLines, 1)
	require.Len(t, usLines, 1)
	assert.Equal(t, int64(10*30000/100), euLines[0].AmountCents)
	assert.Equal(t, int64(20*30000/100), usLines[0].AmountCents)
	assert.Equal(t, "eu", euLines[0].Region)
	assert.Equal(t, "us", usLines[0].Region)
}

func TestRoyaltyRun_ChannelFailureKeepsEarlierChannels_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	// Provision a digital_sales table missing the revenue column before
	// the standard source tables, so the digital aggregation query fails
	// after the streams channel has already committed
	_, err := testDB.DB.Exec(ctx,
		`CREATE TABLE digital_sales (
			id BIGSERIAL PRIMARY KEY,
			work_type TEXT NOT NULL,
			work_id BIGINT NOT NULL,
			region TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`)
	require.NoError(t, err)
	testutil.CreateSourceTables(t, testDB)

	cfg := config.DefaultRevenueConfig()
	cfg.MaxRegionRetries = 1
	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	royalties := service.NewRoyaltyService(uowFactory, cfg)

	periodStart := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC)

	songID := testutil.SeedSong(t, testDB, 10, "Half Finished")
	testutil.SeedStreams(t, testDB, songID, 500, time.Date(2024, 8, 5, 12, 0, 0, 0, time.UTC), "global", 30)
	_, err = testDB.DB.Exec(ctx,
		`INSERT INTO digital_sales (work_type, work_id, region) VALUES ('song', $1, 'global')`, songID)
	require.NoError(t, err)

	results := royalties.RunRoyalties(ctx, periodStart, periodEnd, nil)
	require.Equal(t, "failed", results["global"].Err)

	var runID int64
	err = testDB.DB.QueryRow(ctx, `SELECT id FROM royalty_runs ORDER BY id DESC LIMIT 1`).Scan(&runID)
	require.NoError(t, err)

	runs := repository.NewRoyaltyRunRepository(testDB.DB)
	run, err := runs.GetByID(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.True(t, run.Status.IsTerminal())
	require.NotNil(t, run.Notes)
	assert.Contains(t, *run.Notes, "digital")

	// The streams channel committed before digital broke, so its line
	// survives while the digital channel rolled back to nothing
	lines, err := repository.NewRoyaltyRunLineRepository(testDB.DB).ListByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, models.SourceStreams, lines[0].Source)
	assert.Equal(t, int64(30*30000/100), lines[0].AmountCents)
}

func TestReconciliation_RegionScoped_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	env := setupIntegration(t)
	ctx := context.Background()

	periodStart := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)
	eventTime := time.Date(2024, 9, 12, 21, 0, 0, 0, time.UTC)

	contractStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sponsorshipID := testutil.SeedSponsorship(t, env.db, 42, 901, true, contractStart, nil)
	testutil.SeedAdEvents(t, env.db, sponsorshipID, models.AdEventTypeImpression, eventTime, "eu", 1)
	// Other regions' impressions must not leak into the eu audit
	testutil.SeedAdEvents(t, env.db, sponsorshipID, models.AdEventTypeImpression, eventTime, "us", 3)

	results := env.royalties.RunRoyalties(ctx, periodStart, periodEnd, []string{"eu"})
	require.Empty(t, results["eu"].Err)
	summary := results["eu"].Summary
	require.Equal(t, 1, summary.Sponsorship)

	result, err := env.reconcile.Reconcile(ctx, periodStart, periodEnd, "eu")
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, result.RunID)
	// 1 eu impression at 2 cents gross, 80% venue share floors to 1 cent
	assert.Equal(t, int64(1), result.SponsorshipPayoutCents)
}
