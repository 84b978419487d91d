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

func seedCity(t *testing.T, s *store.Store, banana string) {
	t.Helper()
	require.NoError(t, s.UpsertCity(context.Background(), models.City{Banana: banana, Vendor: "legistar", Active: true}))
}

func TestUpsertMeeting_PreservesSummaryAcrossRefetch(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()
	seedCity(t, s, "preserveCA")

	m := models.Meeting{
		ID: "meeting-1", Banana: "preserveCA", VendorMeetingKey: "1001",
		Title: "Budget Hearing", Date: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertMeeting(ctx, m))
	require.NoError(t, s.UpdateMeetingMonolithicSummary(ctx, m.ID, "A summary.", []string{"budget"}))

	// Re-fetch as if the vendor adapter saw the meeting again, with an
	// updated title but no knowledge of the summary.
	m.Title = "Budget Hearing (Amended)"
	require.NoError(t, s.UpsertMeeting(ctx, m))

	got, err := s.GetMeeting(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Budget Hearing (Amended)", got.Title)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "A summary.", *got.Summary)
	assert.Equal(t, []string{"budget"}, got.Topics)
	assert.Equal(t, models.ProcessingCompleted, got.ProcessingStatus)
}

func TestGetMeeting_NotFound(t *testing.T) {
	s := dbtest.NewStore(t)
	_, err := s.GetMeeting(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetMeetingWithItems(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()
	seedCity(t, s, "itemsCA")

	m := models.Meeting{ID: "meeting-2", Banana: "itemsCA", VendorMeetingKey: "2002", Title: "Council", Date: time.Now()}
	require.NoError(t, s.UpsertMeeting(ctx, m))

	item := models.AgendaItem{ID: "item-1", MeetingID: m.ID, Sequence: 1, VendorItemKey: "i1", Title: "Item one"}
	require.NoError(t, s.UpsertAgendaItem(ctx, item))

	gotMeeting, items, err := s.GetMeetingWithItems(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, gotMeeting.ID)
	require.Len(t, items, 1)
	assert.Equal(t, "Item one", items[0].Title)
}

func TestUpdateMeetingProcessingStatus(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()
	seedCity(t, s, "statusCA")

	m := models.Meeting{ID: "meeting-3", Banana: "statusCA", VendorMeetingKey: "3003", Title: "Council", Date: time.Now()}
	require.NoError(t, s.UpsertMeeting(ctx, m))
	require.NoError(t, s.UpdateMeetingProcessingStatus(ctx, m.ID, models.ProcessingInProgress))

	got, err := s.GetMeeting(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingInProgress, got.ProcessingStatus)
}
