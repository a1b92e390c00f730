package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollaboration_Validate(t *testing.T) {
	valid := Collaboration{
		WorkType:  WorkTypeSong,
		WorkID:    1,
		BandAID:   10,
		BandBID:   20,
		SplitAPct: 60,
		SplitBPct: 40,
	}

	t.Run("valid split", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("percentages must sum to 100", func(t *testing.T) {
		c := valid
		c.SplitBPct = 50
		assert.Error(t, c.Validate())
	})

	t.Run("negative percentage rejected", func(t *testing.T) {
		c := valid
		c.SplitAPct = -10
		c.SplitBPct = 110
		assert.Error(t, c.Validate())
	})

	t.Run("percentage over 100 rejected", func(t *testing.T) {
		c := valid
		c.SplitAPct = 150
		c.SplitBPct = -50
		assert.Error(t, c.Validate())
	})

	t.Run("same band on both sides rejected", func(t *testing.T) {
		c := valid
		c.BandBID = c.BandAID
		assert.Error(t, c.Validate())
	})

	t.Run("zero-hundred split allowed", func(t *testing.T) {
		c := valid
		c.SplitAPct = 0
		c.SplitBPct = 100
		assert.NoError(t, c.Validate())
	})
}

func TestNormalizeWorkType(t *testing.T) {
	assert.Equal(t, WorkTypeSong, NormalizeWorkType("song"))
	assert.Equal(t, WorkTypeAlbum, NormalizeWorkType("album"))
	assert.Equal(t, WorkTypeMisc, NormalizeWorkType("venue"))
	assert.Equal(t, WorkTypeMisc, NormalizeWorkType("merch"))
	assert.Equal(t, WorkTypeMisc, NormalizeWorkType(""))
}
