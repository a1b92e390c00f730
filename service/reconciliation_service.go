package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"royalties/config"
	"royalties/events"
	"royalties/models"
)

// reconciliationService recomputes sponsorship payouts from contracts
// and raw ad events, independently of the aggregation queries, and
// compares the result to what a completed run persisted.
type reconciliationService struct {
	uowFactory UnitOfWorkFactory
	revenue    config.RevenueConfig
}

// NewReconciliationService creates a new reconciliation service. It must
// be configured with the same rates the runs it audits were produced
// with, or every comparison will mismatch.
func NewReconciliationService(uowFactory UnitOfWorkFactory, revenue config.RevenueConfig) ReconciliationService {
	return &reconciliationService{
		uowFactory: uowFactory,
		revenue:    revenue,
	}
}

// Reconcile audits the most recent completed run covering the window.
// The expected payout is rebuilt sponsorship by sponsorship so rate or
// split drift between the run and the audit surfaces as a mismatch.
func (s *reconciliationService) Reconcile(ctx context.Context, periodStart, periodEnd time.Time, region string) (*models.ReconciliationResult, error) {
	if region == "" {
		region = "global"
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	run, err := uow.Runs().GetLatestCompletedForWindow(ctx, periodStart, periodEnd, region)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("no completed royalty run covers %s..%s for region %s",
			periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"), region)
	}

	actual, err := uow.Lines().SumByRunAndSource(ctx, run.ID, models.SourceSponsorship)
	if err != nil {
		return nil, err
	}

	// Resolve the same region column the run's channel read used so a
	// region-scoped audit counts the same events the run did.
	caps, err := uow.Capabilities().Resolve(ctx)
	if err != nil {
		return nil, err
	}

	expected, err := s.expectedVenuePayouts(ctx, uow, periodStart, periodEnd, caps.SponsorshipRegion, region)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if expected != actual {
		mismatch := &ReconciliationMismatchError{
			RunID:         run.ID,
			Region:        region,
			ExpectedCents: expected,
			ActualCents:   actual,
		}

		s.publishMismatch(ctx, mismatch)

		log.WithFields(log.Fields{
			"runID":    run.ID,
			"region":   region,
			"expected": expected,
			"actual":   actual,
		}).Error("Sponsorship reconciliation mismatch")
		return nil, mismatch
	}

	log.WithFields(log.Fields{
		"runID":  run.ID,
		"region": region,
		"payout": actual,
	}).Info("Sponsorship reconciliation passed")

	return &models.ReconciliationResult{
		RunID:                  run.ID,
		SponsorshipPayoutCents: actual,
	}, nil
}

// expectedVenuePayouts recomputes the total venue share across every
// active sponsorship overlapping the window. Each sponsorship's share
// floors independently, the same way the run emitted it per venue.
// Contracts without in-region impressions contribute zero, so the list
// itself needs no region filter.
func (s *reconciliationService) expectedVenuePayouts(ctx context.Context, uow UnitOfWork, periodStart, periodEnd time.Time, regionCol, region string) (int64, error) {
	sponsorships, err := uow.Sponsorships().ListActiveCovering(ctx, periodStart, periodEnd)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, sp := range sponsorships {
		impressions, err := uow.Sponsorships().CountImpressions(ctx, sp.ID, periodStart, windowEnd(periodEnd), regionCol, region)
		if err != nil {
			return 0, err
		}
		if impressions <= 0 {
			continue
		}
		gross := impressions * s.revenue.SponsorImpressionRateCents
		venueCents, _ := SplitAmounts(gross, s.revenue.SponsorVenueSplitPct)
		total += venueCents
	}

	return total, nil
}

// publishMismatch emits the mismatch event in its own short transaction
// so subscribers hear about it even though Reconcile returns an error.
func (s *reconciliationService) publishMismatch(ctx context.Context, mismatch *ReconciliationMismatchError) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithField("error", err).Error("Failed to open transaction for mismatch event")
		return
	}

	uow.EventBus().Publish(events.ReconciliationMismatchEvent{
		RunID:         mismatch.RunID,
		Region:        mismatch.Region,
		ExpectedCents: mismatch.ExpectedCents,
		ActualCents:   mismatch.ActualCents,
	})

	if err := uow.Commit(); err != nil {
		log.WithField("error", err).Error("Failed to commit mismatch event")
	}
}
