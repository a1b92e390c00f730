package repository

import (
	"context"
	"fmt"
	"time"

	"royalties/database"
	"royalties/models"
)

// SponsorshipRepository reads sponsorship contracts and ad events. It
// serves both the sponsorship channel and the reconciliation job, which
// deliberately never reads ledger lines through this type.
type SponsorshipRepository struct {
	q queryable
}

// NewSponsorshipRepository creates a new sponsorship repository
func NewSponsorshipRepository(db *database.DB) *SponsorshipRepository {
	return &SponsorshipRepository{q: db.Pool}
}

// newSponsorshipRepositoryWithTx creates a new sponsorship repository with a transaction
func newSponsorshipRepositoryWithTx(tx queryable) *SponsorshipRepository {
	return &SponsorshipRepository{q: tx}
}

// coveringJoin restricts events to active sponsorships whose date range
// covers the event day. Clicks are tracked but never monetized, so only
// impressions are counted.
var coveringJoin = `
	FROM sponsorship_ad_events e
	JOIN venue_sponsorships vs ON vs.id = e.sponsorship_id
	WHERE e.event_type = '` + string(models.AdEventTypeImpression) + `'
	  AND e.occurred_at >= $1 AND e.occurred_at <= $2
	  AND vs.is_active
	  AND vs.start_date <= e.occurred_at::date
	  AND (vs.end_date IS NULL OR vs.end_date >= e.occurred_at::date)`

// ImpressionsByVenue counts monetizable impressions per venue in the window.
func (r *SponsorshipRepository) ImpressionsByVenue(ctx context.Context, start, end time.Time, regionCol, region string) ([]models.VenueImpressions, error) {
	filter, args := regionFilter("e", regionCol, region, 3)

	query := fmt.Sprintf(`
		SELECT vs.venue_id, COUNT(*)::bigint AS impressions
		%s%s
		GROUP BY vs.venue_id
		ORDER BY vs.venue_id
	`, coveringJoin, filter)

	rows, err := r.q.Query(ctx, query, append([]any{start, end}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query impressions by venue: %w", err)
	}
	defer rows.Close()

	var impressions []models.VenueImpressions
	for rows.Next() {
		var vi models.VenueImpressions
		if err := rows.Scan(&vi.VenueID, &vi.Impressions); err != nil {
			return nil, fmt.Errorf("failed to scan venue impressions: %w", err)
		}
		impressions = append(impressions, vi)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate venue impressions: %w", err)
	}

	return impressions, nil
}

// ListActiveCovering returns active sponsorships whose date range
// overlaps the window at all, for the reconciliation pass.
func (r *SponsorshipRepository) ListActiveCovering(ctx context.Context, start, end time.Time) ([]*models.VenueSponsorship, error) {
	query := `
		SELECT id, venue_id, sponsor_id, is_active, start_date, end_date
		FROM venue_sponsorships
		WHERE is_active
		  AND start_date <= $2::date
		  AND (end_date IS NULL OR end_date >= $1::date)
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sponsorships: %w", err)
	}
	defer rows.Close()

	var sponsorships []*models.VenueSponsorship
	for rows.Next() {
		var s models.VenueSponsorship
		if err := rows.Scan(&s.ID, &s.VenueID, &s.SponsorID, &s.IsActive, &s.StartDate, &s.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan sponsorship: %w", err)
		}
		sponsorships = append(sponsorships, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sponsorships: %w", err)
	}

	return sponsorships, nil
}

// CountImpressions counts a single sponsorship's monetizable impressions
// in the window, applying the same date-coverage and region rules as the
// channel read so the two computation paths agree per region.
func (r *SponsorshipRepository) CountImpressions(ctx context.Context, sponsorshipID int64, start, end time.Time, regionCol, region string) (int64, error) {
	filter, args := regionFilter("e", regionCol, region, 4)

	query := `
		SELECT COUNT(*)::bigint
		` + coveringJoin + `
		  AND e.sponsorship_id = $3` + filter

	var count int64
	err := r.q.QueryRow(ctx, query, append([]any{start, end, sponsorshipID}, args...)...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count impressions for sponsorship %d: %w", sponsorshipID, err)
	}

	return count, nil
}
