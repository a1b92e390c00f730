package service

import (
	"fmt"
)

// ValidationError reports malformed collaborator-supplied configuration,
// such as split percentages that do not sum to 100. It aborts only the
// current region's run.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// ReconciliationMismatchError means the independently recomputed
// sponsorship payout diverged from the persisted ledger. It is fatal and
// never auto-corrected; the two computation paths must be investigated.
type ReconciliationMismatchError struct {
	RunID         int64
	Region        string
	ExpectedCents int64
	ActualCents   int64
}

func (e *ReconciliationMismatchError) Error() string {
	return fmt.Sprintf("sponsorship payout mismatch for run %d (%s): ledger=%d expected=%d",
		e.RunID, e.Region, e.ActualCents, e.ExpectedCents)
}
