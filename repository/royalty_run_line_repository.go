package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"royalties/database"
	"royalties/models"
)

// RoyaltyRunLineRepository implements the RoyaltyRunLineRepository interface
type RoyaltyRunLineRepository struct {
	q queryable
}

// NewRoyaltyRunLineRepository creates a new royalty run line repository
func NewRoyaltyRunLineRepository(db *database.DB) *RoyaltyRunLineRepository {
	return &RoyaltyRunLineRepository{q: db.Pool}
}

// newRoyaltyRunLineRepositoryWithTx creates a new royalty run line repository with a transaction
func newRoyaltyRunLineRepositoryWithTx(tx queryable) *RoyaltyRunLineRepository {
	return &RoyaltyRunLineRepository{q: tx}
}

// Insert appends one immutable ledger line
func (r *RoyaltyRunLineRepository) Insert(ctx context.Context, line *models.RoyaltyRunLine) error {
	if line.AmountCents < 0 {
		return fmt.Errorf("refusing to insert negative line amount %d for run %d", line.AmountCents, line.RunID)
	}
	if line.Region == "" {
		line.Region = "global"
	}

	var metaJSON []byte
	if line.Meta != nil {
		var err error
		metaJSON, err = json.Marshal(line.Meta)
		if err != nil {
			return fmt.Errorf("failed to marshal line meta: %w", err)
		}
	}

	query := `
		INSERT INTO royalty_run_lines
		(run_id, region, work_type, work_id, band_id, collaborator_band_id, source, amount_cents, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		line.RunID,
		line.Region,
		line.WorkType,
		line.WorkID,
		line.BandID,
		line.CollaboratorBandID,
		line.Source,
		line.AmountCents,
		metaJSON,
	).Scan(&line.ID, &line.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert royalty line for run %d: %w", line.RunID, err)
	}

	return nil
}

// CountByRun returns how many lines a run has written so far. The run
// manager diffs this across a channel to report per-channel line deltas.
func (r *RoyaltyRunLineRepository) CountByRun(ctx context.Context, runID int64) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM royalty_run_lines WHERE run_id = $1`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count lines for run %d: %w", runID, err)
	}
	return count, nil
}

// SumByRunAndSource returns the total amount a run attributed through one channel
func (r *RoyaltyRunLineRepository) SumByRunAndSource(ctx context.Context, runID int64, source models.Source) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM royalty_run_lines WHERE run_id = $1 AND source = $2`,
		runID, source,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s lines for run %d: %w", source, runID, err)
	}
	return total, nil
}

// ListByRun returns all lines for a run in insertion order
func (r *RoyaltyRunLineRepository) ListByRun(ctx context.Context, runID int64) ([]*models.RoyaltyRunLine, error) {
	query := `
		SELECT id, run_id, region, work_type, work_id, band_id, collaborator_band_id,
		       source, amount_cents, meta, created_at
		FROM royalty_run_lines
		WHERE run_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lines for run %d: %w", runID, err)
	}
	defer rows.Close()

	var lines []*models.RoyaltyRunLine
	for rows.Next() {
		var line models.RoyaltyRunLine
		var metaJSON []byte

		err := rows.Scan(
			&line.ID,
			&line.RunID,
			&line.Region,
			&line.WorkType,
			&line.WorkID,
			&line.BandID,
			&line.CollaboratorBandID,
			&line.Source,
			&line.AmountCents,
			&metaJSON,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan royalty line: %w", err)
		}

		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &line.Meta); err != nil {
				return nil, fmt.Errorf("failed to unmarshal line meta: %w", err)
			}
		}

		lines = append(lines, &line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lines for run %d: %w", runID, err)
	}

	return lines, nil
}
