package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"royalties/database"
	"royalties/models"
)

// WorkRepository looks up ownership of songs and albums in the host
// application's catalog tables.
type WorkRepository struct {
	q queryable
}

// NewWorkRepository creates a new work repository
func NewWorkRepository(db *database.DB) *WorkRepository {
	return &WorkRepository{q: db.Pool}
}

// newWorkRepositoryWithTx creates a new work repository with a transaction
func newWorkRepositoryWithTx(tx queryable) *WorkRepository {
	return &WorkRepository{q: tx}
}

// OwnerBand returns the owning band for a song or album, or nil when the
// work has no recorded owner. Only song and album works have owners.
func (r *WorkRepository) OwnerBand(ctx context.Context, workType models.WorkType, workID int64) (*int64, error) {
	var table string
	switch workType {
	case models.WorkTypeSong:
		table = "songs"
	case models.WorkTypeAlbum:
		table = "albums"
	default:
		return nil, nil
	}

	var bandID *int64
	err := r.q.QueryRow(ctx,
		fmt.Sprintf(`SELECT band_id FROM %s WHERE id = $1`, table), workID,
	).Scan(&bandID)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up owner band for %s %d: %w", workType, workID, err)
	}

	return bandID, nil
}
