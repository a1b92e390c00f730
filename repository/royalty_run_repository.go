package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"royalties/database"
	"royalties/models"
)

// RoyaltyRunRepository implements the RoyaltyRunRepository interface
type RoyaltyRunRepository struct {
	q queryable
}

// NewRoyaltyRunRepository creates a new royalty run repository
func NewRoyaltyRunRepository(db *database.DB) *RoyaltyRunRepository {
	return &RoyaltyRunRepository{q: db.Pool}
}

// newRoyaltyRunRepositoryWithTx creates a new royalty run repository with a transaction
func newRoyaltyRunRepositoryWithTx(tx queryable) *RoyaltyRunRepository {
	return &RoyaltyRunRepository{q: tx}
}

const runColumns = `id, period_start, period_end, region, status, notes, created_at, updated_at`

// Create inserts a new run in the pending state
func (r *RoyaltyRunRepository) Create(ctx context.Context, run *models.RoyaltyRun) error {
	if run.Region == "" {
		run.Region = "global"
	}
	if run.Status == "" {
		run.Status = models.RunStatusPending
	}

	query := `
		INSERT INTO royalty_runs (period_start, period_end, region, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		run.PeriodStart,
		run.PeriodEnd,
		run.Region,
		run.Status,
	).Scan(&run.ID, &run.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create royalty run for region %s: %w", run.Region, err)
	}

	return nil
}

// UpdateStatus transitions a run to the given status, optionally setting
// notes. Terminal states are protected by the WHERE clause: a run that is
// already completed or failed is never rewritten.
func (r *RoyaltyRunRepository) UpdateStatus(ctx context.Context, runID int64, status models.RunStatus, notes *string) error {
	query := `
		UPDATE royalty_runs
		SET status = $2, notes = COALESCE($3, notes), updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
	`

	tag, err := r.q.Exec(ctx, query, runID, status, notes)
	if err != nil {
		return fmt.Errorf("failed to update royalty run %d to %s: %w", runID, status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("royalty run %d is already terminal, refusing transition to %s", runID, status)
	}

	return nil
}

// GetByID retrieves a run by its ID
func (r *RoyaltyRunRepository) GetByID(ctx context.Context, runID int64) (*models.RoyaltyRun, error) {
	query := `SELECT ` + runColumns + ` FROM royalty_runs WHERE id = $1`

	var run models.RoyaltyRun
	err := r.q.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&run.PeriodStart,
		&run.PeriodEnd,
		&run.Region,
		&run.Status,
		&run.Notes,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get royalty run %d: %w", runID, err)
	}

	return &run, nil
}

// GetLatestCompletedForWindow returns the most recently created completed
// run whose period covers the given window for the region, or nil.
// "Which run is authoritative" is caller policy; latest created_at wins here.
func (r *RoyaltyRunRepository) GetLatestCompletedForWindow(ctx context.Context, periodStart, periodEnd time.Time, region string) (*models.RoyaltyRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM royalty_runs
		WHERE status = 'completed'
		  AND region = $3
		  AND period_start <= $1 AND period_end >= $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var run models.RoyaltyRun
	err := r.q.QueryRow(ctx, query, periodStart, periodEnd, region).Scan(
		&run.ID,
		&run.PeriodStart,
		&run.PeriodEnd,
		&run.Region,
		&run.Status,
		&run.Notes,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest completed run for region %s: %w", region, err)
	}

	return &run, nil
}

// AcquireWindowLock takes a transaction-scoped advisory lock keyed on
// (period_start, period_end, region) so that two concurrent runs over the
// same window serialize instead of interleaving their line writes. The
// lock releases automatically at commit or rollback.
func (r *RoyaltyRunRepository) AcquireWindowLock(ctx context.Context, periodStart, periodEnd time.Time, region string) error {
	key := fmt.Sprintf("royalty_run:%s:%s:%s",
		periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"), region)

	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	if err != nil {
		return fmt.Errorf("failed to acquire window lock for %s: %w", key, err)
	}

	return nil
}

// FailStale flags runs stuck in 'running' past the timeout as failed so a
// crashed process is visible to operators. It does not attempt recovery
// of partial lines.
func (r *RoyaltyRunRepository) FailStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE royalty_runs
		SET status = 'failed',
		    notes = 'flagged stale by supervisory sweep',
		    updated_at = NOW()
		WHERE status = 'running'
		  AND COALESCE(updated_at, created_at) < NOW() - make_interval(secs => $1)
	`

	tag, err := r.q.Exec(ctx, query, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale royalty runs: %w", err)
	}

	return tag.RowsAffected(), nil
}
