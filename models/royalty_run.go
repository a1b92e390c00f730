package models

import (
	"time"
)

// RunStatus represents the lifecycle state of a royalty run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal returns true if the status can never change again
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// RoyaltyRun represents one execution of the aggregation engine for a
// period and region. Runs are never deleted; corrections are new runs.
type RoyaltyRun struct {
	ID          int64      `db:"id"`
	PeriodStart time.Time  `db:"period_start"`
	PeriodEnd   time.Time  `db:"period_end"`
	Region      string     `db:"region"`
	Status      RunStatus  `db:"status"`
	Notes       *string    `db:"notes"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
}
