package repository

import (
	"context"
	"fmt"
	"time"

	"royalties/database"
	"royalties/models"
)

// StreamRepository reads raw play events and produces anti-fraud-capped
// totals per song. The raw events never leave the database; capping and
// summation happen in SQL.
type StreamRepository struct {
	q queryable
}

// NewStreamRepository creates a new stream repository
func NewStreamRepository(db *database.DB) *StreamRepository {
	return &StreamRepository{q: db.Pool}
}

// newStreamRepositoryWithTx creates a new stream repository with a transaction
func newStreamRepositoryWithTx(tx queryable) *StreamRepository {
	return &StreamRepository{q: tx}
}

// CappedPlayTotals groups plays by (song, day, user), clips each group to
// the per-user-per-day cap before summing across users and days, and
// returns the total per song. Songs with zero plays are omitted entirely.
// regionCol must come from SchemaCapabilities (it is whitelisted there);
// empty regionCol or the global region disables the filter.
func (r *StreamRepository) CappedPlayTotals(ctx context.Context, start, end time.Time, cap int64, regionCol, region string) ([]models.PlayTotal, error) {
	filter, args := regionFilter("", regionCol, region, 4)

	query := fmt.Sprintf(`
		WITH capped AS (
			SELECT song_id, date_trunc('day', created_at) AS day, user_id,
			       LEAST(COUNT(*), $3::bigint) AS capped_plays
			FROM streams
			WHERE created_at >= $1 AND created_at <= $2%s
			GROUP BY song_id, day, user_id
		)
		SELECT song_id, SUM(capped_plays)::bigint AS total_plays
		FROM capped
		GROUP BY song_id
		ORDER BY song_id
	`, filter)

	rows, err := r.q.Query(ctx, query, append([]any{start, end, cap}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query capped play totals: %w", err)
	}
	defer rows.Close()

	var totals []models.PlayTotal
	for rows.Next() {
		var t models.PlayTotal
		if err := rows.Scan(&t.SongID, &t.Plays); err != nil {
			return nil, fmt.Errorf("failed to scan play total: %w", err)
		}
		totals = append(totals, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate play totals: %w", err)
	}

	return totals, nil
}

// regionFilter builds an optional region predicate. The alias and column
// names are interpolated, never the value; callers only pass column names
// resolved from the regionColumnPriority whitelist.
func regionFilter(alias, regionCol, region string, argIndex int) (string, []any) {
	if regionCol == "" || region == "" || region == "global" {
		return "", nil
	}
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	return fmt.Sprintf(" AND %s%s = $%d", prefix, regionCol, argIndex), []any{region}
}
