package models

import (
	"time"
)

// AdEventType classifies sponsorship ad events. Only impressions are
// monetized; clicks are tracked but never paid out.
type AdEventType string

const (
	AdEventTypeImpression AdEventType = "impression"
	AdEventTypeClick      AdEventType = "click"
)

// VenueSponsorship is a contract between a venue and a sponsor. The
// engine only reads these; the host application manages them.
type VenueSponsorship struct {
	ID        int64      `db:"id"`
	VenueID   int64      `db:"venue_id"`
	SponsorID int64      `db:"sponsor_id"`
	IsActive  bool       `db:"is_active"`
	StartDate time.Time  `db:"start_date"`
	EndDate   *time.Time `db:"end_date"`
}

// Covers reports whether the sponsorship's date range covers the given day.
func (s *VenueSponsorship) Covers(day time.Time) bool {
	if day.Before(s.StartDate) {
		return false
	}
	return s.EndDate == nil || !day.After(*s.EndDate)
}
