package service

import (
	"context"
	"time"

	"royalties/events"
	"royalties/models"
)

// RoyaltyRunRepository defines the interface for run ledger access
type RoyaltyRunRepository interface {
	// Create inserts a new run in the pending state
	Create(ctx context.Context, run *models.RoyaltyRun) error

	// UpdateStatus transitions a run, refusing to rewrite terminal states
	UpdateStatus(ctx context.Context, runID int64, status models.RunStatus, notes *string) error

	// GetByID retrieves a run by its ID
	GetByID(ctx context.Context, runID int64) (*models.RoyaltyRun, error)

	// GetLatestCompletedForWindow returns the most recent completed run
	// covering the window for the region, or nil
	GetLatestCompletedForWindow(ctx context.Context, periodStart, periodEnd time.Time, region string) (*models.RoyaltyRun, error)

	// AcquireWindowLock serializes concurrent runs over the same
	// (period, region) tuple for the duration of the transaction
	AcquireWindowLock(ctx context.Context, periodStart, periodEnd time.Time, region string) error

	// FailStale flags runs stuck in 'running' past the timeout as failed
	FailStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RoyaltyRunLineRepository defines the interface for ledger line access
type RoyaltyRunLineRepository interface {
	// Insert appends one immutable ledger line
	Insert(ctx context.Context, line *models.RoyaltyRunLine) error

	// CountByRun returns how many lines a run has written so far
	CountByRun(ctx context.Context, runID int64) (int, error)

	// SumByRunAndSource totals one channel's attributed amount for a run
	SumByRunAndSource(ctx context.Context, runID int64, source models.Source) (int64, error)

	// ListByRun returns all lines for a run in insertion order
	ListByRun(ctx context.Context, runID int64) ([]*models.RoyaltyRunLine, error)
}

// CollaborationRepository defines the interface for joint-ownership lookup
type CollaborationRepository interface {
	// GetByWork returns the collaboration for a work, or nil for sole ownership
	GetByWork(ctx context.Context, workType models.WorkType, workID int64) (*models.Collaboration, error)
}

// WorkRepository defines the interface for catalog ownership lookup
type WorkRepository interface {
	// OwnerBand returns the owning band for a song or album, or nil
	OwnerBand(ctx context.Context, workType models.WorkType, workID int64) (*int64, error)
}

// StreamRepository defines the interface for the anti-fraud stream reader
type StreamRepository interface {
	// CappedPlayTotals returns per-song play totals with the
	// per-user-per-day cap applied before summation
	CappedPlayTotals(ctx context.Context, start, end time.Time, cap int64, regionCol, region string) ([]models.PlayTotal, error)
}

// DigitalSaleRepository defines the interface for the digital sale reader
type DigitalSaleRepository interface {
	// RevenueByWork sums sale prices per work inside the window
	RevenueByWork(ctx context.Context, start, end time.Time, regionCol, region string) ([]models.WorkRevenue, error)
}

// VinylRepository defines the interface for the vinyl sale reader
type VinylRepository interface {
	// ConfirmedRevenueByAlbum nets confirmed-order revenue per album
	ConfirmedRevenueByAlbum(ctx context.Context, start, end time.Time, regionCol, region string) ([]models.AlbumRevenue, error)
}

// SponsorshipRepository defines the interface for sponsorship contract
// and ad event access
type SponsorshipRepository interface {
	// ImpressionsByVenue counts monetizable impressions per venue
	ImpressionsByVenue(ctx context.Context, start, end time.Time, regionCol, region string) ([]models.VenueImpressions, error)

	// ListActiveCovering returns active sponsorships overlapping the window
	ListActiveCovering(ctx context.Context, start, end time.Time) ([]*models.VenueSponsorship, error)

	// CountImpressions counts one sponsorship's impressions in the
	// window, region-scoped the same way the channel read is
	CountImpressions(ctx context.Context, sponsorshipID int64, start, end time.Time, regionCol, region string) (int64, error)
}

// CapabilitiesRepository resolves which optional source tables exist
type CapabilitiesRepository interface {
	// Resolve probes the schema once for the known optional capabilities
	Resolve(ctx context.Context) (models.SchemaCapabilities, error)
}

// EventPublisher defines the interface for publishing events within a
// unit of work; events only reach subscribers after the commit
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork provides transactional access to all repositories
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	Runs() RoyaltyRunRepository
	Lines() RoyaltyRunLineRepository
	Collaborations() CollaborationRepository
	Works() WorkRepository
	Streams() StreamRepository
	DigitalSales() DigitalSaleRepository
	Vinyl() VinylRepository
	Sponsorships() SponsorshipRepository
	Capabilities() CapabilitiesRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates new units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// RoyaltyService defines the aggregation engine's sole entry points
type RoyaltyService interface {
	// RunRoyalties executes one royalty run per requested region with
	// bounded retries, blocking until every region finishes or exhausts
	// its attempts. A nil or empty region list means ["global"].
	RunRoyalties(ctx context.Context, periodStart, periodEnd time.Time, regions []string) map[string]models.RegionResult

	// SweepStaleRuns flags runs stuck in 'running' past the configured
	// timeout as failed, returning how many were flagged
	SweepStaleRuns(ctx context.Context) (int64, error)
}

// ReconciliationService verifies persisted sponsorship payouts against
// an independent recomputation from contracts and events
type ReconciliationService interface {
	// Reconcile recomputes expected venue payouts for the window and
	// compares them to the most recent completed run's sponsorship
	// lines. A mismatch returns *ReconciliationMismatchError.
	Reconcile(ctx context.Context, periodStart, periodEnd time.Time, region string) (*models.ReconciliationResult, error)
}
