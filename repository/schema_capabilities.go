package repository

import (
	"context"
	"fmt"

	"royalties/database"
	"royalties/models"
)

// CapabilitiesRepository resolves which optional revenue source tables
// this deployment carries. Resolved once per region run and passed to
// the readers, replacing per-query schema probing.
type CapabilitiesRepository struct {
	q queryable
}

// NewCapabilitiesRepository creates a new capabilities repository
func NewCapabilitiesRepository(db *database.DB) *CapabilitiesRepository {
	return &CapabilitiesRepository{q: db.Pool}
}

// newCapabilitiesRepositoryWithTx creates a new capabilities repository with a transaction
func newCapabilitiesRepositoryWithTx(tx queryable) *CapabilitiesRepository {
	return &CapabilitiesRepository{q: tx}
}

// regionColumnPriority is the closed set of column names a source table
// may use to scope rows to a region, checked in order. Because resolved
// names come only from this list, readers can interpolate them into SQL.
var regionColumnPriority = []string{"region", "country_code", "country"}

// Resolve probes the schema for the known optional tables and their
// region columns.
func (r *CapabilitiesRepository) Resolve(ctx context.Context) (models.SchemaCapabilities, error) {
	var caps models.SchemaCapabilities
	var err error

	tables := []struct {
		name      string
		exists    *bool
		regionCol *string
	}{
		{"streams", &caps.Streams, &caps.StreamsRegion},
		{"digital_sales", &caps.DigitalSales, &caps.DigitalRegion},
		{"vinyl_orders", &caps.VinylOrders, &caps.VinylRegion},
		{"vinyl_order_items", &caps.VinylOrderItems, nil},
		{"vinyl_skus", &caps.VinylSKUs, nil},
		{"venue_sponsorships", &caps.VenueSponsorships, nil},
		{"sponsorship_ad_events", &caps.SponsorshipAdEvents, &caps.SponsorshipRegion},
		{"collaborations", &caps.Collaborations, nil},
		{"songs", &caps.Songs, nil},
		{"albums", &caps.Albums, nil},
	}

	for _, t := range tables {
		*t.exists, err = r.tableExists(ctx, t.name)
		if err != nil {
			return caps, err
		}
		if !*t.exists || t.regionCol == nil {
			continue
		}
		*t.regionCol, err = r.regionColumn(ctx, t.name)
		if err != nil {
			return caps, err
		}
	}

	return caps, nil
}

func (r *CapabilitiesRepository) tableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT to_regclass('public.' || $1::text) IS NOT NULL`, table,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to probe table %s: %w", table, err)
	}
	return exists, nil
}

// regionColumn returns the first matching region-like column the table
// carries, or "" when it has none.
func (r *CapabilitiesRepository) regionColumn(ctx context.Context, table string) (string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		  AND column_name = ANY($2)
	`, table, regionColumnPriority)
	if err != nil {
		return "", fmt.Errorf("failed to probe region column on %s: %w", table, err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return "", fmt.Errorf("failed to scan region column: %w", err)
		}
		found[col] = true
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate region columns for %s: %w", table, err)
	}

	for _, col := range regionColumnPriority {
		if found[col] {
			return col, nil
		}
	}
	return "", nil
}
