package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetingID_Deterministic(t *testing.T) {
	date := time.Date(2025, 11, 10, 18, 0, 0, 0, time.UTC)
	a := MeetingID("paloaltoCA", "council-2025-11-10", date)
	b := MeetingID("paloaltoCA", "council-2025-11-10", date)
	assert.Equal(t, a, b)

	// Same calendar day, different time of day, still collapses.
	later := time.Date(2025, 11, 10, 23, 59, 0, 0, time.UTC)
	c := MeetingID("paloaltoCA", "council-2025-11-10", later)
	assert.Equal(t, a, c)

	// Different city, different id.
	d := MeetingID("sfCA", "council-2025-11-10", date)
	assert.NotEqual(t, a, d)
}

func TestItemID_Deterministic(t *testing.T) {
	meetingID := "paloaltoCA_abc0123456789def"
	a := ItemID(meetingID, 1, "item-1")
	b := ItemID(meetingID, 1, "item-1")
	assert.Equal(t, a, b)

	c := ItemID(meetingID, 2, "item-1")
	assert.NotEqual(t, a, c)
}

func TestMatterID(t *testing.T) {
	t.Run("deterministic for same inputs", func(t *testing.T) {
		id1, ok1 := MatterID("sfCA", "BL2025-1098", "251041")
		id2, ok2 := MatterID("sfCA", "BL2025-1098", "251041")
		require.True(t, ok1)
		require.True(t, ok2)
		assert.Equal(t, id1, id2)
	})

	t.Run("different banana yields different id for identical file/id", func(t *testing.T) {
		a, _ := MatterID("sfCA", "BL2025-1098", "251041")
		b, _ := MatterID("oaklandCA", "BL2025-1098", "251041")
		assert.NotEqual(t, a, b)
	})

	t.Run("format is banana underscore 16 hex chars", func(t *testing.T) {
		id, ok := MatterID("sfCA", "BL2025-1098", "251041")
		require.True(t, ok)
		assert.Equal(t, "sfCA_", id[:5])
		assert.Len(t, id, len("sfCA_")+16)
	})

	t.Run("no id when both file and vendor id missing", func(t *testing.T) {
		_, ok := MatterID("sfCA", "", "")
		assert.False(t, ok)
	})

	t.Run("matter_file alone is sufficient", func(t *testing.T) {
		_, ok := MatterID("sfCA", "BL2025-1098", "")
		assert.True(t, ok)
	})

	t.Run("matter_id alone is sufficient", func(t *testing.T) {
		_, ok := MatterID("sfCA", "", "251041")
		assert.True(t, ok)
	})
}
