package models

import (
	"fmt"
)

// Collaboration records joint ownership of a work between two bands.
// Absence of a row implies sole ownership.
type Collaboration struct {
	WorkType  WorkType `db:"work_type"`
	WorkID    int64    `db:"work_id"`
	BandAID   int64    `db:"band_a_id"`
	BandBID   int64    `db:"band_b_id"`
	SplitAPct int      `db:"split_a_pct"`
	SplitBPct int      `db:"split_b_pct"`
}

// Validate checks the split configuration. Percentages come from
// collaborator-supplied config and are never assumed to be well-formed.
func (c *Collaboration) Validate() error {
	if c.SplitAPct < 0 || c.SplitAPct > 100 || c.SplitBPct < 0 || c.SplitBPct > 100 {
		return fmt.Errorf("split percentages out of range: %d/%d", c.SplitAPct, c.SplitBPct)
	}
	if c.SplitAPct+c.SplitBPct != 100 {
		return fmt.Errorf("split percentages must sum to 100, got %d/%d", c.SplitAPct, c.SplitBPct)
	}
	if c.BandAID == c.BandBID {
		return fmt.Errorf("collaboration bands must be distinct, got band %d twice", c.BandAID)
	}
	return nil
}
