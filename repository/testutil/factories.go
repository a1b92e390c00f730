package testutil

import (
	"time"

	"royalties/models"
)

// CreateTestRun creates a pending run over a one-month window
func CreateTestRun(region string) *models.RoyaltyRun {
	return &models.RoyaltyRun{
		PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Region:      region,
		Status:      models.RunStatusPending,
	}
}

// CreateTestRunForWindow creates a pending run over a specific window
func CreateTestRunForWindow(region string, periodStart, periodEnd time.Time) *models.RoyaltyRun {
	run := CreateTestRun(region)
	run.PeriodStart = periodStart
	run.PeriodEnd = periodEnd
	return run
}

// CreateTestLine creates a ledger line with default values
func CreateTestLine(runID int64, source models.Source, amountCents int64) *models.RoyaltyRunLine {
	workID := int64(1)
	return &models.RoyaltyRunLine{
		RunID:       runID,
		Region:      "global",
		WorkType:    models.WorkTypeSong,
		WorkID:      &workID,
		Source:      source,
		AmountCents: amountCents,
		Meta: map[string]interface{}{
			"test": true,
		},
	}
}

// CreateTestLineForWork creates a ledger line attributed to a specific work
func CreateTestLineForWork(runID int64, workType models.WorkType, workID int64, source models.Source, amountCents int64) *models.RoyaltyRunLine {
	line := CreateTestLine(runID, source, amountCents)
	line.WorkType = workType
	line.WorkID = &workID
	return line
}

// CreateTestCollaboration creates a two-band split for a song
func CreateTestCollaboration(workID, bandA, bandB int64, pctA int) *models.Collaboration {
	return &models.Collaboration{
		WorkType:  models.WorkTypeSong,
		WorkID:    workID,
		BandAID:   bandA,
		BandBID:   bandB,
		SplitAPct: pctA,
		SplitBPct: 100 - pctA,
	}
}

// CreateTestSponsorship creates an active open-ended sponsorship
func CreateTestSponsorship(id, venueID int64) *models.VenueSponsorship {
	return &models.VenueSponsorship{
		ID:        id,
		VenueID:   venueID,
		SponsorID: 901,
		IsActive:  true,
		StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
