package testutil

import (
	"context"
	"testing"
	"time"

	"royalties/models"

	"github.com/stretchr/testify/require"
)

// Source tables belong to the host platform, not to this engine's
// migrations, so integration tests create them directly. Each table
// carries a region column so region-scoped runs can be exercised.
var sourceTableDDL = []string{
	`CREATE TABLE IF NOT EXISTS songs (
		id BIGSERIAL PRIMARY KEY,
		band_id BIGINT,
		title TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS albums (
		id BIGSERIAL PRIMARY KEY,
		band_id BIGINT,
		title TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS streams (
		id BIGSERIAL PRIMARY KEY,
		song_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		region TEXT,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS digital_sales (
		id BIGSERIAL PRIMARY KEY,
		work_type TEXT NOT NULL,
		work_id BIGINT NOT NULL,
		price_cents BIGINT NOT NULL,
		region TEXT,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS vinyl_orders (
		id BIGSERIAL PRIMARY KEY,
		status TEXT NOT NULL,
		region TEXT,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS vinyl_skus (
		id BIGSERIAL PRIMARY KEY,
		album_id BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vinyl_order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL,
		sku_id BIGINT NOT NULL,
		qty BIGINT NOT NULL,
		refunded_qty BIGINT NOT NULL DEFAULT 0,
		unit_price_cents BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS collaborations (
		id BIGSERIAL PRIMARY KEY,
		work_type TEXT NOT NULL,
		work_id BIGINT NOT NULL,
		band_a_id BIGINT NOT NULL,
		band_b_id BIGINT NOT NULL,
		split_a_pct INTEGER NOT NULL,
		split_b_pct INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS venue_sponsorships (
		id BIGSERIAL PRIMARY KEY,
		venue_id BIGINT NOT NULL,
		sponsor_id BIGINT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		start_date DATE NOT NULL,
		end_date DATE
	)`,
	`CREATE TABLE IF NOT EXISTS sponsorship_ad_events (
		id BIGSERIAL PRIMARY KEY,
		sponsorship_id BIGINT NOT NULL,
		event_type TEXT NOT NULL,
		region TEXT,
		occurred_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,
}

// CreateSourceTables provisions every optional source table the engine
// can consume. Tests that need a missing-capability scenario simply
// skip this call (or drop individual tables afterward).
func CreateSourceTables(t *testing.T, td *TestDatabase) {
	ctx := context.Background()
	for _, ddl := range sourceTableDDL {
		_, err := td.DB.Exec(ctx, ddl)
		require.NoError(t, err)
	}
}

// SeedSong inserts a song owned by a band and returns its ID.
func SeedSong(t *testing.T, td *TestDatabase, bandID int64, title string) int64 {
	var id int64
	err := td.DB.QueryRow(context.Background(),
		`INSERT INTO songs (band_id, title) VALUES ($1, $2) RETURNING id`,
		bandID, title).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedAlbum inserts an album owned by a band and returns its ID.
func SeedAlbum(t *testing.T, td *TestDatabase, bandID int64, title string) int64 {
	var id int64
	err := td.DB.QueryRow(context.Background(),
		`INSERT INTO albums (band_id, title) VALUES ($1, $2) RETURNING id`,
		bandID, title).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedStreams inserts count plays of one song by one user at the given
// time, all in the given region.
func SeedStreams(t *testing.T, td *TestDatabase, songID, userID int64, at time.Time, region string, count int) {
	ctx := context.Background()
	for i := 0; i < count; i++ {
		_, err := td.DB.Exec(ctx,
			`INSERT INTO streams (song_id, user_id, region, created_at) VALUES ($1, $2, $3, $4)`,
			songID, userID, region, at)
		require.NoError(t, err)
	}
}

// SeedDigitalSale inserts one digital sale row.
func SeedDigitalSale(t *testing.T, td *TestDatabase, workType string, workID, priceCents int64, at time.Time, region string) {
	_, err := td.DB.Exec(context.Background(),
		`INSERT INTO digital_sales (work_type, work_id, price_cents, region, created_at) VALUES ($1, $2, $3, $4, $5)`,
		workType, workID, priceCents, region, at)
	require.NoError(t, err)
}

// SeedVinylOrder inserts an order with one line item and returns the
// order ID.
func SeedVinylOrder(t *testing.T, td *TestDatabase, status string, albumID int64, qty, refundedQty, unitPriceCents int64, at time.Time, region string) int64 {
	ctx := context.Background()

	var skuID int64
	err := td.DB.QueryRow(ctx,
		`INSERT INTO vinyl_skus (album_id) VALUES ($1) RETURNING id`, albumID).Scan(&skuID)
	require.NoError(t, err)

	var orderID int64
	err = td.DB.QueryRow(ctx,
		`INSERT INTO vinyl_orders (status, region, created_at) VALUES ($1, $2, $3) RETURNING id`,
		status, region, at).Scan(&orderID)
	require.NoError(t, err)

	_, err = td.DB.Exec(ctx,
		`INSERT INTO vinyl_order_items (order_id, sku_id, qty, refunded_qty, unit_price_cents) VALUES ($1, $2, $3, $4, $5)`,
		orderID, skuID, qty, refundedQty, unitPriceCents)
	require.NoError(t, err)

	return orderID
}

// SeedCollaboration inserts a two-band split for a work.
func SeedCollaboration(t *testing.T, td *TestDatabase, workType string, workID, bandA, bandB int64, pctA, pctB int) {
	_, err := td.DB.Exec(context.Background(),
		`INSERT INTO collaborations (work_type, work_id, band_a_id, band_b_id, split_a_pct, split_b_pct)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		workType, workID, bandA, bandB, pctA, pctB)
	require.NoError(t, err)
}

// SeedSponsorship inserts a sponsorship contract and returns its ID.
func SeedSponsorship(t *testing.T, td *TestDatabase, venueID, sponsorID int64, active bool, startDate time.Time, endDate *time.Time) int64 {
	var id int64
	err := td.DB.QueryRow(context.Background(),
		`INSERT INTO venue_sponsorships (venue_id, sponsor_id, is_active, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		venueID, sponsorID, active, startDate, endDate).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedAdEvents inserts count ad events for a sponsorship.
func SeedAdEvents(t *testing.T, td *TestDatabase, sponsorshipID int64, eventType models.AdEventType, at time.Time, region string, count int) {
	ctx := context.Background()
	for i := 0; i < count; i++ {
		_, err := td.DB.Exec(ctx,
			`INSERT INTO sponsorship_ad_events (sponsorship_id, event_type, region, occurred_at) VALUES ($1, $2, $3, $4)`,
			sponsorshipID, string(eventType), region, at)
		require.NoError(t, err)
	}
}
