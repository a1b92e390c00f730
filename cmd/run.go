package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"royalties/config"
	"royalties/database"
	"royalties/events"
	"royalties/repository"
	"royalties/service"
)

// app bundles everything a subcommand needs once wiring is done.
type app struct {
	db             *database.DB
	royalties      service.RoyaltyService
	reconciliation service.ReconciliationService
}

// setup connects to the database and wires the event bus, unit of work
// factory and services. The caller must Close the returned app.
func setup(ctx context.Context) (*app, error) {
	cfg := config.Get()

	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	eventBus := events.NewBus()
	registerEventLogging(eventBus)

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	return &app{
		db:             db,
		royalties:      service.NewRoyaltyService(uowFactory, cfg.Revenue),
		reconciliation: service.NewReconciliationService(uowFactory, cfg.Revenue),
	}, nil
}

func (a *app) Close() {
	log.Println("Closing database connection...")
	a.db.Close()
}

// registerEventLogging attaches operational log subscribers so run
// outcomes are visible even when the caller only checks the exit code.
func registerEventLogging(bus *events.Bus) {
	bus.Subscribe(events.EventTypeRoyaltyRunCompleted, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.RoyaltyRunCompletedEvent); ok {
			log.Printf("Run %d completed for region %s: lines %v", e.RunID, e.Region, e.LineCounts)
		}
	})
	bus.Subscribe(events.EventTypeRoyaltyRunFailed, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.RoyaltyRunFailedEvent); ok {
			log.Printf("Run %d failed for region %s: %s", e.RunID, e.Region, e.Reason)
		}
	})
	bus.Subscribe(events.EventTypeReconciliationMismatch, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.ReconciliationMismatchEvent); ok {
			log.Printf("Reconciliation mismatch on run %d (%s): expected %d actual %d",
				e.RunID, e.Region, e.ExpectedCents, e.ActualCents)
		}
	})
}

// RunRoyalties executes royalty runs for the given period and regions
// and reports per-region outcomes. Returns an error if any region
// ultimately failed.
func RunRoyalties(ctx context.Context, startStr, endStr string, regions []string) error {
	periodStart, periodEnd, err := parseWindow(startStr, endStr)
	if err != nil {
		return err
	}

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	results := a.royalties.RunRoyalties(ctx, periodStart, periodEnd, regions)

	var failed []string
	for region, result := range results {
		if result.Err != "" {
			failed = append(failed, region)
			log.Printf("Region %s: %s", region, result.Err)
			continue
		}
		s := result.Summary
		log.Printf("Region %s: run %d (streams=%d digital=%d vinyl=%d sponsorship=%d)",
			region, s.RunID, s.Streams, s.Digital, s.Vinyl, s.Sponsorship)
	}

	if len(failed) > 0 {
		return fmt.Errorf("royalty run failed for regions: %v", failed)
	}
	return nil
}

// Reconcile verifies the latest completed run's sponsorship payouts for
// the window against an independent recomputation.
func Reconcile(ctx context.Context, startStr, endStr, region string) error {
	periodStart, periodEnd, err := parseWindow(startStr, endStr)
	if err != nil {
		return err
	}

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.reconciliation.Reconcile(ctx, periodStart, periodEnd, region)
	if err != nil {
		return err
	}

	log.Printf("Reconciliation passed: run %d, sponsorship payout %d cents",
		result.RunID, result.SponsorshipPayoutCents)
	return nil
}

// SweepStaleRuns flags abandoned running runs as failed.
func SweepStaleRuns(ctx context.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	flagged, err := a.royalties.SweepStaleRuns(ctx)
	if err != nil {
		return err
	}

	log.Printf("Flagged %d stale runs as failed", flagged)
	return nil
}

// parseWindow parses an inclusive accounting period as two UTC dates.
func parseWindow(startStr, endStr string) (time.Time, time.Time, error) {
	periodStart, err := time.ParseInLocation("2006-01-02", startStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -start date %q: %w", startStr, err)
	}
	periodEnd, err := time.ParseInLocation("2006-01-02", endStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -end date %q: %w", endStr, err)
	}
	if periodEnd.Before(periodStart) {
		return time.Time{}, time.Time{}, fmt.Errorf("period end %s precedes start %s", endStr, startStr)
	}
	return periodStart, periodEnd, nil
}
