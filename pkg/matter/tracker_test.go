package matter_test

import (
	"context"
	"testing"
	"time"

	"github.com/civicsync/civicsync/pkg/matter"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx is an in-memory stand-in for *store.Tx, letting tracker logic be
// tested without a Postgres instance.
type fakeTx struct {
	matters     map[string]models.Matter
	appearances map[string]bool
}

func newFakeTx() *fakeTx {
	return &fakeTx{matters: map[string]models.Matter{}, appearances: map[string]bool{}}
}

func (f *fakeTx) GetMatter(_ context.Context, id string) (*models.Matter, error) {
	m, ok := f.matters[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (f *fakeTx) InsertMatter(_ context.Context, m models.Matter) error {
	if _, exists := f.matters[m.ID]; exists {
		return nil
	}
	m.AppearanceCount = 1
	f.matters[m.ID] = m
	return nil
}

func (f *fakeTx) TouchMatterAppearance(_ context.Context, id string, seenAt time.Time) error {
	m := f.matters[id]
	m.AppearanceCount++
	if seenAt.Before(m.FirstSeen) {
		m.FirstSeen = seenAt
	}
	if seenAt.After(m.LastSeen) {
		m.LastSeen = seenAt
	}
	f.matters[id] = m
	return nil
}

func (f *fakeTx) CreateMatterAppearance(_ context.Context, a models.MatterAppearance) (bool, error) {
	key := a.MatterID + "/" + a.MeetingID + "/" + a.ItemID
	if f.appearances[key] {
		return false, nil
	}
	f.appearances[key] = true
	return true, nil
}

func TestTrack_NoIdentifiersSkipsTracking(t *testing.T) {
	tx := newFakeTx()
	id, ok, err := matter.Track(context.Background(), tx, "cityCA", "", "", "", "Untracked item", "m1", "i1", 1, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestTrack_FirstSightingCreatesMatter(t *testing.T) {
	tx := newFakeTx()
	seenAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	id, ok, err := matter.Track(context.Background(), tx, "cityCA", "ORD-100", "", "ordinance", "Zoning ordinance", "m1", "i1", 1, seenAt)
	require.NoError(t, err)
	require.True(t, ok)

	m := tx.matters[id]
	assert.Equal(t, 1, m.AppearanceCount)
	assert.Equal(t, seenAt, m.FirstSeen)
}

func TestTrack_SecondMeetingAppearanceBumpsCount(t *testing.T) {
	tx := newFakeTx()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 14)

	id, _, err := matter.Track(context.Background(), tx, "cityCA", "ORD-100", "", "ordinance", "Zoning ordinance", "m1", "i1", 1, first)
	require.NoError(t, err)

	_, _, err = matter.Track(context.Background(), tx, "cityCA", "ORD-100", "", "ordinance", "Zoning ordinance", "m2", "i2", 1, second)
	require.NoError(t, err)

	m := tx.matters[id]
	assert.Equal(t, 2, m.AppearanceCount)
	assert.Equal(t, second, m.LastSeen)
}

func TestTrack_ResyncSameMeetingDoesNotDoubleCount(t *testing.T) {
	tx := newFakeTx()
	seenAt := time.Now()

	id, _, err := matter.Track(context.Background(), tx, "cityCA", "ORD-100", "", "ordinance", "Zoning ordinance", "m1", "i1", 1, seenAt)
	require.NoError(t, err)

	// Re-syncing the exact same meeting/item should not inflate the count.
	_, _, err = matter.Track(context.Background(), tx, "cityCA", "ORD-100", "", "ordinance", "Zoning ordinance", "m1", "i1", 1, seenAt)
	require.NoError(t, err)

	m := tx.matters[id]
	assert.Equal(t, 1, m.AppearanceCount)
}

func TestTrack_SameMatterDifferentItemsWithinOneMeetingCountsEachItem(t *testing.T) {
	tx := newFakeTx()
	seenAt := time.Now()

	id, _, err := matter.Track(context.Background(), tx, "cityCA", "ORD-100", "", "ordinance", "Zoning ordinance", "m1", "i1", 1, seenAt)
	require.NoError(t, err)

	// A second item referencing the same matter within the same meeting is
	// a new appearance row (different item_id) but shouldn't be confused
	// with a brand-new matter; appearance_count intentionally reflects
	// appearance rows, not unique meetings, so this does bump it once more.
	_, _, err = matter.Track(context.Background(), tx, "cityCA", "ORD-100", "", "ordinance", "Zoning ordinance", "m1", "i2", 2, seenAt)
	require.NoError(t, err)

	m := tx.matters[id]
	assert.Equal(t, 2, m.AppearanceCount)
}
