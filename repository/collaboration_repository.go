package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"royalties/database"
	"royalties/models"
)

// CollaborationRepository implements the CollaborationRepository interface
type CollaborationRepository struct {
	q queryable
}

// NewCollaborationRepository creates a new collaboration repository
func NewCollaborationRepository(db *database.DB) *CollaborationRepository {
	return &CollaborationRepository{q: db.Pool}
}

// newCollaborationRepositoryWithTx creates a new collaboration repository with a transaction
func newCollaborationRepositoryWithTx(tx queryable) *CollaborationRepository {
	return &CollaborationRepository{q: tx}
}

// GetByWork returns the collaboration row for a work, or nil when the
// work is solely owned. Split percentages are returned as stored; the
// resolver validates them.
func (r *CollaborationRepository) GetByWork(ctx context.Context, workType models.WorkType, workID int64) (*models.Collaboration, error) {
	query := `
		SELECT work_type, work_id, band_a_id, band_b_id, split_a_pct, split_b_pct
		FROM collaborations
		WHERE work_type = $1 AND work_id = $2
	`

	var collab models.Collaboration
	err := r.q.QueryRow(ctx, query, workType, workID).Scan(
		&collab.WorkType,
		&collab.WorkID,
		&collab.BandAID,
		&collab.BandBID,
		&collab.SplitAPct,
		&collab.SplitBPct,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collaboration for %s %d: %w", workType, workID, err)
	}

	return &collab, nil
}
