package models

import (
	"time"
)

// WorkType identifies what kind of work a line attributes money to
type WorkType string

const (
	WorkTypeSong  WorkType = "song"
	WorkTypeAlbum WorkType = "album"
	WorkTypeVenue WorkType = "venue"
	WorkTypeMisc  WorkType = "misc"
)

// NormalizeWorkType maps arbitrary sale work types onto the closed set.
// Anything that is not a song or album is attributed as misc.
func NormalizeWorkType(raw string) WorkType {
	switch WorkType(raw) {
	case WorkTypeSong:
		return WorkTypeSong
	case WorkTypeAlbum:
		return WorkTypeAlbum
	default:
		return WorkTypeMisc
	}
}

// Source identifies which revenue channel produced a line
type Source string

const (
	SourceStreams     Source = "streams"
	SourceDigital     Source = "digital"
	SourceVinyl       Source = "vinyl"
	SourceSponsorship Source = "sponsorship"
)

// ChannelOrder is the fixed order channels are processed in within a run
var ChannelOrder = []Source{SourceStreams, SourceDigital, SourceVinyl, SourceSponsorship}

// RoyaltyRunLine is one attributed money amount in the ledger. Lines are
// append-only; a line belongs to exactly one run.
type RoyaltyRunLine struct {
	ID                 int64                  `db:"id"`
	RunID              int64                  `db:"run_id"`
	Region             string                 `db:"region"`
	WorkType           WorkType               `db:"work_type"`
	WorkID             *int64                 `db:"work_id"`
	BandID             *int64                 `db:"band_id"`
	CollaboratorBandID *int64                 `db:"collaborator_band_id"`
	Source             Source                 `db:"source"`
	AmountCents        int64                  `db:"amount_cents"`
	Meta               map[string]interface{} `db:"meta"`
	CreatedAt          time.Time              `db:"created_at"`
}
