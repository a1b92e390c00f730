package repository

import (
	"context"
	"testing"
	"time"

	"royalties/models"
	"royalties/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoyaltyRunRepository_Create(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoyaltyRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("assigns id and created_at", func(t *testing.T) {
		run := testutil.CreateTestRun("global")
		err := repo.Create(ctx, run)
		require.NoError(t, err)

		assert.NotZero(t, run.ID)
		assert.NotNil(t, run.CreatedAt)
		assert.Equal(t, models.RunStatusPending, run.Status)
	})

	t.Run("empty region defaults to global", func(t *testing.T) {
		run := testutil.CreateTestRun("")
		err := repo.Create(ctx, run)
		require.NoError(t, err)

		stored, err := repo.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, "global", stored.Region)
	})
}

func TestRoyaltyRunRepository_UpdateStatus(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoyaltyRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("pending to running to completed", func(t *testing.T) {
		run := testutil.CreateTestRun("global")
		require.NoError(t, repo.Create(ctx, run))

		require.NoError(t, repo.UpdateStatus(ctx, run.ID, models.RunStatusRunning, nil))
		require.NoError(t, repo.UpdateStatus(ctx, run.ID, models.RunStatusCompleted, nil))

		stored, err := repo.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusCompleted, stored.Status)
	})

	t.Run("failed records notes", func(t *testing.T) {
		run := testutil.CreateTestRun("global")
		require.NoError(t, repo.Create(ctx, run))

		notes := "streams reader: connection reset"
		require.NoError(t, repo.UpdateStatus(ctx, run.ID, models.RunStatusFailed, &notes))

		stored, err := repo.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusFailed, stored.Status)
		require.NotNil(t, stored.Notes)
		assert.Equal(t, notes, *stored.Notes)
	})

	t.Run("terminal states are immutable", func(t *testing.T) {
		run := testutil.CreateTestRun("global")
		require.NoError(t, repo.Create(ctx, run))
		require.NoError(t, repo.UpdateStatus(ctx, run.ID, models.RunStatusCompleted, nil))

		err := repo.UpdateStatus(ctx, run.ID, models.RunStatusRunning, nil)
		assert.Error(t, err)

		stored, err := repo.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusCompleted, stored.Status)
	})
}

func TestRoyaltyRunRepository_GetLatestCompletedForWindow(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoyaltyRunRepository(testDB.DB)
	ctx := context.Background()

	periodStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	t.Run("no completed run", func(t *testing.T) {
		run, err := repo.GetLatestCompletedForWindow(ctx, periodStart, periodEnd, "global")
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("pending runs are ignored", func(t *testing.T) {
		pending := testutil.CreateTestRunForWindow("global", periodStart, periodEnd)
		require.NoError(t, repo.Create(ctx, pending))

		run, err := repo.GetLatestCompletedForWindow(ctx, periodStart, periodEnd, "global")
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("latest completed run wins", func(t *testing.T) {
		first := testutil.CreateTestRunForWindow("global", periodStart, periodEnd)
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.UpdateStatus(ctx, first.ID, models.RunStatusCompleted, nil))

		second := testutil.CreateTestRunForWindow("global", periodStart, periodEnd)
		require.NoError(t, repo.Create(ctx, second))
		require.NoError(t, repo.UpdateStatus(ctx, second.ID, models.RunStatusCompleted, nil))

		run, err := repo.GetLatestCompletedForWindow(ctx, periodStart, periodEnd, "global")
		require.NoError(t, err)
		require.NotNil(t, run)
		assert.Equal(t, second.ID, run.ID)
	})

	t.Run("region is scoped", func(t *testing.T) {
		run, err := repo.GetLatestCompletedForWindow(ctx, periodStart, periodEnd, "eu")
		require.NoError(t, err)
		assert.Nil(t, run)
	})
}

func TestRoyaltyRunRepository_FailStale(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoyaltyRunRepository(testDB.DB)
	ctx := context.Background()

	stuck := testutil.CreateTestRun("global")
	require.NoError(t, repo.Create(ctx, stuck))
	require.NoError(t, repo.UpdateStatus(ctx, stuck.ID, models.RunStatusRunning, nil))

	// Age the run past the timeout
	_, err := testDB.DB.Exec(ctx,
		`UPDATE royalty_runs SET updated_at = NOW() - INTERVAL '2 hours' WHERE id = $1`, stuck.ID)
	require.NoError(t, err)

	fresh := testutil.CreateTestRun("global")
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.UpdateStatus(ctx, fresh.ID, models.RunStatusRunning, nil))

	flagged, err := repo.FailStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flagged)

	stuckStored, err := repo.GetByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stuckStored.Status)

	freshStored, err := repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, freshStored.Status)
}
