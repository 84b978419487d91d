package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
	"github.com/civicsync/civicsync/test/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertMatter_IsIdempotent(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()
	seedCity(t, s, "matterCA")

	now := time.Now().UTC()
	m := models.Matter{ID: "matter-1", Banana: "matterCA", MatterFile: "ORD-1", Title: "Zoning ordinance", FirstSeen: now, LastSeen: now}
	require.NoError(t, s.InsertMatter(ctx, m))
	require.NoError(t, s.InsertMatter(ctx, m)) // conflict-safe re-insert

	got, err := s.GetMatter(ctx, "matter-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.MatterFile)
	assert.Equal(t, 1, got.AppearanceCount)
}

func TestTouchMatterAppearance_ExpandsSeenRange(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()
	seedCity(t, s, "touchCA")

	first := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	m := models.Matter{ID: "matter-2", Banana: "touchCA", MatterFile: "RES-2", Title: "Resolution", FirstSeen: first, LastSeen: first}
	require.NoError(t, s.InsertMatter(ctx, m))

	later := first.AddDate(0, 1, 0)
	require.NoError(t, s.TouchMatterAppearance(ctx, "matter-2", later))

	got, err := s.GetMatter(ctx, "matter-2")
	require.NoError(t, err)
	assert.Equal(t, 2, got.AppearanceCount)
	assert.WithinDuration(t, later, got.LastSeen, time.Second)
	assert.WithinDuration(t, first, got.FirstSeen, time.Second)
}

func TestUpdateMatterCanonical(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()
	seedCity(t, s, "canonCA")

	now := time.Now().UTC()
	m := models.Matter{ID: "matter-3", Banana: "canonCA", MatterFile: "ORD-3", Title: "Ordinance", FirstSeen: now, LastSeen: now}
	require.NoError(t, s.InsertMatter(ctx, m))

	require.NoError(t, s.UpdateMatterCanonical(ctx, "matter-3", "A canonical summary.", []string{"zoning", "housing"}, "hash-abc"))

	got, err := s.GetMatter(ctx, "matter-3")
	require.NoError(t, err)
	require.NotNil(t, got.CanonicalSummary)
	assert.Equal(t, "A canonical summary.", *got.CanonicalSummary)
	assert.Equal(t, []string{"zoning", "housing"}, got.CanonicalTopics)
	require.NotNil(t, got.AttachmentHash)
	assert.Equal(t, "hash-abc", *got.AttachmentHash)
}

func TestGetMatter_NotFound(t *testing.T) {
	s := dbtest.NewStore(t)
	_, err := s.GetMatter(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMatterAppearances_CreateAndList(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()
	seedCity(t, s, "appearCA")

	now := time.Now()
	meeting := models.Meeting{ID: "meeting-appear", Banana: "appearCA", VendorMeetingKey: "1", Title: "Council", Date: now}
	require.NoError(t, s.UpsertMeeting(ctx, meeting))

	item := models.AgendaItem{ID: "item-appear", MeetingID: meeting.ID, Sequence: 1, VendorItemKey: "i1", Title: "Item"}
	require.NoError(t, s.UpsertAgendaItem(ctx, item))

	matter := models.Matter{ID: "matter-appear", Banana: "appearCA", MatterFile: "ORD-9", Title: "Ordinance", FirstSeen: now, LastSeen: now}
	require.NoError(t, s.InsertMatter(ctx, matter))

	appearance := models.MatterAppearance{MatterID: matter.ID, MeetingID: meeting.ID, ItemID: item.ID, Sequence: 1}
	created, err := s.CreateMatterAppearance(ctx, appearance)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.CreateMatterAppearance(ctx, appearance) // idempotent
	require.NoError(t, err)
	assert.False(t, created)

	appearances, err := s.ListAppearancesByMatter(ctx, matter.ID)
	require.NoError(t, err)
	require.Len(t, appearances, 1)
	assert.Equal(t, item.ID, appearances[0].ItemID)
}
