package repository

import (
	"context"
	"fmt"
	"time"

	"royalties/database"
	"royalties/models"
)

// VinylRepository nets vinyl order revenue per album. Only orders in the
// finalized confirmed state count; pending and cancelled orders are excluded.
type VinylRepository struct {
	q queryable
}

// NewVinylRepository creates a new vinyl repository
func NewVinylRepository(db *database.DB) *VinylRepository {
	return &VinylRepository{q: db.Pool}
}

// newVinylRepositoryWithTx creates a new vinyl repository with a transaction
func newVinylRepositoryWithTx(tx queryable) *VinylRepository {
	return &VinylRepository{q: tx}
}

// ConfirmedRevenueByAlbum nets qty minus refunded_qty per order item,
// joined through SKUs to albums, for confirmed orders in the window.
func (r *VinylRepository) ConfirmedRevenueByAlbum(ctx context.Context, start, end time.Time, regionCol, region string) ([]models.AlbumRevenue, error) {
	filter, args := regionFilter("o", regionCol, region, 3)

	query := fmt.Sprintf(`
		SELECT s.album_id,
		       SUM(oi.unit_price_cents * (oi.qty - oi.refunded_qty))::bigint AS revenue_cents,
		       SUM(oi.qty - oi.refunded_qty)::bigint AS units
		FROM vinyl_order_items oi
		JOIN vinyl_orders o ON o.id = oi.order_id
		JOIN vinyl_skus s ON s.id = oi.sku_id
		WHERE o.status = 'confirmed'
		  AND o.created_at >= $1 AND o.created_at <= $2%s
		GROUP BY s.album_id
		ORDER BY s.album_id
	`, filter)

	rows, err := r.q.Query(ctx, query, append([]any{start, end}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vinyl revenue: %w", err)
	}
	defer rows.Close()

	var revenues []models.AlbumRevenue
	for rows.Next() {
		var rev models.AlbumRevenue
		if err := rows.Scan(&rev.AlbumID, &rev.RevenueCents, &rev.Units); err != nil {
			return nil, fmt.Errorf("failed to scan vinyl revenue: %w", err)
		}
		revenues = append(revenues, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vinyl revenue: %w", err)
	}

	return revenues, nil
}
