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

func TestUpsertCity_CreateThenUpdate(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()

	city := models.City{
		Banana: "alamedaCA",
		Vendor: "legistar",
		Config: models.VendorConfig{BaseURL: "https://alameda.legistar.com"},
		Active: true,
	}
	require.NoError(t, s.UpsertCity(ctx, city))

	got, err := s.GetCity(ctx, "alamedaCA")
	require.NoError(t, err)
	assert.Equal(t, "legistar", got.Vendor)
	assert.True(t, got.Active)
	assert.Equal(t, "https://alameda.legistar.com", got.Config.BaseURL)
	assert.Nil(t, got.LastSyncedAt)

	city.Active = false
	city.Config.EnhancedHashing = true
	require.NoError(t, s.UpsertCity(ctx, city))

	got, err = s.GetCity(ctx, "alamedaCA")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.True(t, got.Config.EnhancedHashing)
}

func TestGetCity_NotFound(t *testing.T) {
	s := dbtest.NewStore(t)
	_, err := s.GetCity(context.Background(), "missingCA")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListActiveCities_ExcludesInactive(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCity(ctx, models.City{Banana: "activeCA", Vendor: "legistar", Active: true}))
	require.NoError(t, s.UpsertCity(ctx, models.City{Banana: "dormantCA", Vendor: "legistar", Active: false}))

	cities, err := s.ListActiveCities(ctx)
	require.NoError(t, err)

	bananas := make([]string, 0, len(cities))
	for _, c := range cities {
		bananas = append(bananas, c.Banana)
	}
	assert.Contains(t, bananas, "activeCA")
	assert.NotContains(t, bananas, "dormantCA")
}

func TestUpdateLastSynced(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCity(ctx, models.City{Banana: "sunnyCA", Vendor: "granicus", Active: true}))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateLastSynced(ctx, "sunnyCA", now))

	got, err := s.GetCity(ctx, "sunnyCA")
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncedAt)
	assert.WithinDuration(t, now, *got.LastSyncedAt, time.Second)
}

func TestCountMeetingsSince(t *testing.T) {
	s := dbtest.NewStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCity(ctx, models.City{Banana: "countCA", Vendor: "legistar", Active: true}))

	recent := models.Meeting{ID: "m1", Banana: "countCA", VendorMeetingKey: "1", Title: "Council", Date: time.Now()}
	old := models.Meeting{ID: "m2", Banana: "countCA", VendorMeetingKey: "2", Title: "Council", Date: time.Now().AddDate(0, -2, 0)}
	require.NoError(t, s.UpsertMeeting(ctx, recent))
	require.NoError(t, s.UpsertMeeting(ctx, old))

	n, err := s.CountMeetingsSince(ctx, "countCA", time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
