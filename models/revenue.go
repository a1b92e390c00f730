package models

// PlayTotal is one song's anti-fraud-capped play count for a window.
type PlayTotal struct {
	SongID int64
	Plays  int64
}

// WorkRevenue is the summed sale revenue for one work in a window.
type WorkRevenue struct {
	WorkType     string
	WorkID       int64
	RevenueCents int64
	Count        int64
}

// AlbumRevenue is the netted vinyl revenue for one album in a window.
type AlbumRevenue struct {
	AlbumID      int64
	RevenueCents int64
	Units        int64
}

// VenueImpressions is the impression count attributed to one venue's
// active sponsorships in a window.
type VenueImpressions struct {
	VenueID     int64
	Impressions int64
}

// RegionSummary reports one completed region run: the run ID and the
// number of ledger lines each channel wrote (after minus before).
type RegionSummary struct {
	RunID       int64  `json:"run_id"`
	Region      string `json:"region"`
	Streams     int    `json:"streams"`
	Digital     int    `json:"digital"`
	Vinyl       int    `json:"vinyl"`
	Sponsorship int    `json:"sponsorship"`
}

// RegionResult is the per-region outcome of an orchestration. Exactly one
// of Summary or Err is set; Err means retries were exhausted.
type RegionResult struct {
	Summary *RegionSummary `json:"summary,omitempty"`
	Err     string         `json:"error,omitempty"`
}

// ReconciliationResult is the outcome of a successful reconciliation pass.
type ReconciliationResult struct {
	RunID                  int64 `json:"run_id"`
	SponsorshipPayoutCents int64 `json:"sponsorship_payout_cents"`
}
