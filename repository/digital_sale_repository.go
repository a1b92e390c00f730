package repository

import (
	"context"
	"fmt"
	"time"

	"royalties/database"
	"royalties/models"
)

// DigitalSaleRepository sums recorded digital sale prices per work.
type DigitalSaleRepository struct {
	q queryable
}

// NewDigitalSaleRepository creates a new digital sale repository
func NewDigitalSaleRepository(db *database.DB) *DigitalSaleRepository {
	return &DigitalSaleRepository{q: db.Pool}
}

// newDigitalSaleRepositoryWithTx creates a new digital sale repository with a transaction
func newDigitalSaleRepositoryWithTx(tx queryable) *DigitalSaleRepository {
	return &DigitalSaleRepository{q: tx}
}

// RevenueByWork sums sale prices per (work_type, work_id) inside the
// window, with the supporting sale count. The raw work type is returned
// as stored; the run manager normalizes it.
func (r *DigitalSaleRepository) RevenueByWork(ctx context.Context, start, end time.Time, regionCol, region string) ([]models.WorkRevenue, error) {
	filter, args := regionFilter("", regionCol, region, 3)

	query := fmt.Sprintf(`
		SELECT work_type, work_id, SUM(price_cents)::bigint AS revenue_cents, COUNT(*)::bigint AS cnt
		FROM digital_sales
		WHERE created_at >= $1 AND created_at <= $2%s
		GROUP BY work_type, work_id
		ORDER BY work_type, work_id
	`, filter)

	rows, err := r.q.Query(ctx, query, append([]any{start, end}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query digital sale revenue: %w", err)
	}
	defer rows.Close()

	var revenues []models.WorkRevenue
	for rows.Next() {
		var rev models.WorkRevenue
		if err := rows.Scan(&rev.WorkType, &rev.WorkID, &rev.RevenueCents, &rev.Count); err != nil {
			return nil, fmt.Errorf("failed to scan digital sale revenue: %w", err)
		}
		revenues = append(revenues, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate digital sale revenue: %w", err)
	}

	return revenues, nil
}
