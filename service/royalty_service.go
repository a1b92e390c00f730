package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"royalties/config"
	"royalties/events"
	"royalties/models"
)

// royaltyService owns the lifecycle of royalty runs: it fans out across
// regions, drives each region's channels in a fixed order within
// per-channel transactions, and is the sole decision point for
// retry-vs-fail-run-vs-propagate.
type royaltyService struct {
	uowFactory UnitOfWorkFactory
	revenue    config.RevenueConfig
}

// NewRoyaltyService creates a new royalty service with the given revenue
// configuration. The configuration is captured at construction; callers
// needing different rates construct another service.
func NewRoyaltyService(uowFactory UnitOfWorkFactory, revenue config.RevenueConfig) RoyaltyService {
	return &royaltyService{
		uowFactory: uowFactory,
		revenue:    revenue,
	}
}

// retryBackoff spaces region attempts apart without stalling tests
const retryBackoff = 250 * time.Millisecond

// RunRoyalties executes one run per region, each in its own goroutine.
// Regions are independent units of work: each owns its transactions and
// only writes rows tagged with its own region, so they may safely run in
// parallel. Blocks until every region finishes or exhausts retries.
func (s *royaltyService) RunRoyalties(ctx context.Context, periodStart, periodEnd time.Time, regions []string) map[string]models.RegionResult {
	if len(regions) == 0 {
		regions = []string{"global"}
	}

	results := make(map[string]models.RegionResult, len(regions))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, region := range regions {
		wg.Add(1)
		go func(region string) {
			defer wg.Done()
			result := s.runRegionWithRetries(ctx, periodStart, periodEnd, region)

			mu.Lock()
			results[region] = result
			mu.Unlock()
		}(region)
	}

	wg.Wait()
	return results
}

// runRegionWithRetries drives one region through up to MaxRegionRetries
// attempts. Validation errors are not retried: malformed configuration
// will not fix itself between attempts.
func (s *royaltyService) runRegionWithRetries(ctx context.Context, periodStart, periodEnd time.Time, region string) models.RegionResult {
	maxAttempts := s.revenue.MaxRegionRetries
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		summary, err := s.runSingleRegion(ctx, periodStart, periodEnd, region)
		if err == nil {
			return models.RegionResult{Summary: summary}
		}

		log.WithFields(log.Fields{
			"region":  region,
			"attempt": attempt,
			"error":   err,
		}).Warn("Royalty run attempt failed")

		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			break
		}
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt) * retryBackoff)
		}
	}

	log.WithField("region", region).Error("Royalty run exhausted retries")
	return models.RegionResult{Err: "failed"}
}

// runSingleRegion performs one complete royalty run for a region. Each
// channel commits in its own transaction; a channel failure rolls back
// only that channel's lines, marks the run failed with the error text,
// and propagates. Earlier channels' committed lines persist on the
// failed run for audit.
func (s *royaltyService) runSingleRegion(ctx context.Context, periodStart, periodEnd time.Time, region string) (*models.RegionSummary, error) {
	if region == "" {
		region = "global"
	}

	run := models.RoyaltyRun{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Region:      region,
		Status:      models.RunStatusPending,
	}

	// Resolve schema capabilities once and commit the run row first so
	// the run is visible as running even if a later channel fails.
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	caps, err := uow.Capabilities().Resolve(ctx)
	if err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Runs().Create(ctx, &run); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Runs().UpdateStatus(ctx, run.ID, models.RunStatusRunning, nil); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	run.Status = models.RunStatusRunning

	log.WithFields(log.Fields{
		"runID":  run.ID,
		"region": region,
		"start":  periodStart.Format("2006-01-02"),
		"end":    periodEnd.Format("2006-01-02"),
	}).Info("Royalty run started")

	summary := &models.RegionSummary{RunID: run.ID, Region: region}

	channels := []struct {
		source  models.Source
		process func(context.Context, UnitOfWork, models.SchemaCapabilities, *models.RoyaltyRun) error
		delta   *int
	}{
		{models.SourceStreams, s.processStreams, &summary.Streams},
		{models.SourceDigital, s.processDigital, &summary.Digital},
		{models.SourceVinyl, s.processVinyl, &summary.Vinyl},
		{models.SourceSponsorship, s.processSponsorship, &summary.Sponsorship},
	}

	for _, ch := range channels {
		delta, err := s.runChannel(ctx, &run, caps, ch.process)
		if err != nil {
			s.failRun(ctx, &run, err)
			return nil, fmt.Errorf("channel %s failed for run %d: %w", ch.source, run.ID, err)
		}
		*ch.delta = delta
	}

	if err := s.completeRun(ctx, &run, summary); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"runID":       run.ID,
		"region":      region,
		"streams":     summary.Streams,
		"digital":     summary.Digital,
		"vinyl":       summary.Vinyl,
		"sponsorship": summary.Sponsorship,
	}).Info("Royalty run completed")

	return summary, nil
}

// runChannel processes one channel inside its own transaction, holding
// the window advisory lock so concurrent same-window runs serialize. The
// returned delta is the number of lines the channel wrote.
func (s *royaltyService) runChannel(ctx context.Context, run *models.RoyaltyRun, caps models.SchemaCapabilities,
	process func(context.Context, UnitOfWork, models.SchemaCapabilities, *models.RoyaltyRun) error) (int, error) {

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	if err := uow.Runs().AcquireWindowLock(ctx, run.PeriodStart, run.PeriodEnd, run.Region); err != nil {
		return 0, err
	}

	before, err := uow.Lines().CountByRun(ctx, run.ID)
	if err != nil {
		return 0, err
	}

	if err := process(ctx, uow, caps, run); err != nil {
		return 0, err
	}

	after, err := uow.Lines().CountByRun(ctx, run.ID)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, err
	}

	return after - before, nil
}

// completeRun sets the terminal completed status and publishes the
// completion event after the commit.
func (s *royaltyService) completeRun(ctx context.Context, run *models.RoyaltyRun, summary *models.RegionSummary) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	if err := uow.Runs().UpdateStatus(ctx, run.ID, models.RunStatusCompleted, nil); err != nil {
		uow.Rollback()
		return err
	}

	uow.EventBus().Publish(events.RoyaltyRunCompletedEvent{
		RunID:       run.ID,
		Region:      run.Region,
		PeriodStart: run.PeriodStart,
		PeriodEnd:   run.PeriodEnd,
		LineCounts: map[string]int{
			string(models.SourceStreams):     summary.Streams,
			string(models.SourceDigital):     summary.Digital,
			string(models.SourceVinyl):       summary.Vinyl,
			string(models.SourceSponsorship): summary.Sponsorship,
		},
	})

	return uow.Commit()
}

// failRun marks the run failed with the error text in a transaction
// separate from the rolled-back channel. Failed runs are retained for
// audit; the failure event publishes after the commit.
func (s *royaltyService) failRun(ctx context.Context, run *models.RoyaltyRun, cause error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithFields(log.Fields{"runID": run.ID, "error": err}).Error("Failed to open transaction to mark run failed")
		return
	}

	notes := cause.Error()
	if err := uow.Runs().UpdateStatus(ctx, run.ID, models.RunStatusFailed, &notes); err != nil {
		uow.Rollback()
		log.WithFields(log.Fields{"runID": run.ID, "error": err}).Error("Failed to mark run failed")
		return
	}

	uow.EventBus().Publish(events.RoyaltyRunFailedEvent{
		RunID:  run.ID,
		Region: run.Region,
		Reason: notes,
	})

	if err := uow.Commit(); err != nil {
		log.WithFields(log.Fields{"runID": run.ID, "error": err}).Error("Failed to commit run failure")
	}
}

// processStreams converts anti-fraud-capped play totals into stream
// royalty lines. Revenue floor-divides from microcents to cents so
// payouts never exceed what was earned.
func (s *royaltyService) processStreams(ctx context.Context, uow UnitOfWork, caps models.SchemaCapabilities, run *models.RoyaltyRun) error {
	if !caps.Streams {
		return nil
	}

	totals, err := uow.Streams().CappedPlayTotals(ctx,
		run.PeriodStart, windowEnd(run.PeriodEnd),
		s.revenue.DailyStreamCap, caps.StreamsRegion, run.Region)
	if err != nil {
		return err
	}

	for _, t := range totals {
		cents := t.Plays * s.revenue.StreamRateMicrocents / 100
		if cents <= 0 {
			continue
		}
		meta := map[string]interface{}{"plays": t.Plays}
		if err := s.emitWorkLines(ctx, uow, caps, run, models.WorkTypeSong, t.SongID, models.SourceStreams, cents, meta); err != nil {
			return err
		}
	}

	return nil
}

// processDigital attributes summed digital sale revenue per work.
func (s *royaltyService) processDigital(ctx context.Context, uow UnitOfWork, caps models.SchemaCapabilities, run *models.RoyaltyRun) error {
	if !caps.DigitalSales {
		return nil
	}

	revenues, err := uow.DigitalSales().RevenueByWork(ctx,
		run.PeriodStart, windowEnd(run.PeriodEnd), caps.DigitalRegion, run.Region)
	if err != nil {
		return err
	}

	for _, rev := range revenues {
		if rev.RevenueCents <= 0 {
			continue
		}
		workType := models.NormalizeWorkType(strings.ToLower(rev.WorkType))
		meta := map[string]interface{}{"count": rev.Count}
		if err := s.emitWorkLines(ctx, uow, caps, run, workType, rev.WorkID, models.SourceDigital, rev.RevenueCents, meta); err != nil {
			return err
		}
	}

	return nil
}

// processVinyl attributes netted confirmed vinyl revenue per album.
func (s *royaltyService) processVinyl(ctx context.Context, uow UnitOfWork, caps models.SchemaCapabilities, run *models.RoyaltyRun) error {
	if !caps.Vinyl() {
		return nil
	}

	revenues, err := uow.Vinyl().ConfirmedRevenueByAlbum(ctx,
		run.PeriodStart, windowEnd(run.PeriodEnd), caps.VinylRegion, run.Region)
	if err != nil {
		return err
	}

	for _, rev := range revenues {
		if rev.RevenueCents <= 0 {
			continue
		}
		meta := map[string]interface{}{"units": rev.Units}
		if err := s.emitWorkLines(ctx, uow, caps, run, models.WorkTypeAlbum, rev.AlbumID, models.SourceVinyl, rev.RevenueCents, meta); err != nil {
			return err
		}
	}

	return nil
}

// processSponsorship pays venues their percentage of impression revenue.
// The platform's remainder is carried in the line meta rather than its
// own line; clicks are never monetized.
func (s *royaltyService) processSponsorship(ctx context.Context, uow UnitOfWork, caps models.SchemaCapabilities, run *models.RoyaltyRun) error {
	if !caps.Sponsorship() {
		return nil
	}

	impressions, err := uow.Sponsorships().ImpressionsByVenue(ctx,
		run.PeriodStart, windowEnd(run.PeriodEnd), caps.SponsorshipRegion, run.Region)
	if err != nil {
		return err
	}

	for _, vi := range impressions {
		if vi.Impressions <= 0 {
			continue
		}
		gross := vi.Impressions * s.revenue.SponsorImpressionRateCents
		venueCents, platformCents := SplitAmounts(gross, s.revenue.SponsorVenueSplitPct)
		if venueCents <= 0 {
			continue
		}

		venueID := vi.VenueID
		line := models.RoyaltyRunLine{
			RunID:       run.ID,
			Region:      run.Region,
			WorkType:    models.WorkTypeVenue,
			WorkID:      &venueID,
			Source:      models.SourceSponsorship,
			AmountCents: venueCents,
			Meta: map[string]interface{}{
				"impressions":    vi.Impressions,
				"gross_cents":    gross,
				"platform_cents": platformCents,
			},
		}
		if err := uow.Lines().Insert(ctx, &line); err != nil {
			return err
		}
	}

	return nil
}

// emitWorkLines writes the ledger line(s) for one work's revenue: two
// lines for a collaboration (each naming the other band as collaborator),
// one line otherwise. Misc works carry no ownership.
func (s *royaltyService) emitWorkLines(ctx context.Context, uow UnitOfWork, caps models.SchemaCapabilities, run *models.RoyaltyRun,
	workType models.WorkType, workID int64, source models.Source, amountCents int64, meta map[string]interface{}) error {

	id := workID
	line := models.RoyaltyRunLine{
		RunID:       run.ID,
		Region:      run.Region,
		WorkType:    workType,
		WorkID:      &id,
		Source:      source,
		AmountCents: amountCents,
		Meta:        meta,
	}

	if workType != models.WorkTypeSong && workType != models.WorkTypeAlbum {
		return uow.Lines().Insert(ctx, &line)
	}

	collab, err := s.resolveCollaboration(ctx, uow, caps, workType, workID)
	if err != nil {
		return err
	}

	if collab != nil {
		amountA, amountB := SplitAmounts(amountCents, collab.SplitAPct)
		splitMeta := withSplit(meta, collab.SplitAPct, collab.SplitBPct)

		lineA := line
		lineA.BandID = &collab.BandAID
		lineA.CollaboratorBandID = &collab.BandBID
		lineA.AmountCents = amountA
		lineA.Meta = splitMeta
		if err := uow.Lines().Insert(ctx, &lineA); err != nil {
			return err
		}

		lineB := line
		lineB.BandID = &collab.BandBID
		lineB.CollaboratorBandID = &collab.BandAID
		lineB.AmountCents = amountB
		lineB.Meta = splitMeta
		return uow.Lines().Insert(ctx, &lineB)
	}

	if caps.OwnerLookup(workType) {
		bandID, err := uow.Works().OwnerBand(ctx, workType, workID)
		if err != nil {
			return err
		}
		line.BandID = bandID
	}
	return uow.Lines().Insert(ctx, &line)
}

// resolveCollaboration looks up joint ownership for a work and validates
// the stored split. Percentages come from collaborator config and are
// never assumed well-formed.
func (s *royaltyService) resolveCollaboration(ctx context.Context, uow UnitOfWork, caps models.SchemaCapabilities,
	workType models.WorkType, workID int64) (*models.Collaboration, error) {

	if !caps.Collaborations {
		return nil, nil
	}

	collab, err := uow.Collaborations().GetByWork(ctx, workType, workID)
	if err != nil {
		return nil, err
	}
	if collab == nil {
		return nil, nil
	}
	if err := collab.Validate(); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("collaboration for %s %d: %v", workType, workID, err)}
	}

	return collab, nil
}

// SweepStaleRuns flags runs stuck in 'running' past the configured
// timeout as failed. This is operator visibility for crashed processes,
// not partial-line recovery.
func (s *royaltyService) SweepStaleRuns(ctx context.Context) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	flagged, err := uow.Runs().FailStale(ctx, s.revenue.StaleRunTimeout)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, err
	}

	if flagged > 0 {
		log.WithField("count", flagged).Warn("Flagged stale royalty runs as failed")
	}
	return flagged, nil
}

// withSplit copies meta and records the split ratio without mutating the
// caller's map.
func withSplit(meta map[string]interface{}, pctA, pctB int) map[string]interface{} {
	out := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out["split"] = fmt.Sprintf("%d/%d", pctA, pctB)
	return out
}

// windowEnd converts an inclusive period end date to the last covered
// timestamp of that day.
func windowEnd(periodEnd time.Time) time.Time {
	return periodEnd.Add(24*time.Hour - time.Second)
}
