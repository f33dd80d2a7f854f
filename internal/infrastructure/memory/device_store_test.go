package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ds := memory.NewDeviceStore()
	s, err := ds.Open(ctx, "d1")
	require.NoError(t, err)

	token, user, err := s.Session(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, user)

	u := &domain.UserProfile{ID: 3, Name: "Meera", City: "Jaipur"}
	require.NoError(t, s.SaveSession(ctx, domain.Session{Token: "tok", User: u}))

	token, user, err = s.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, u, user)

	// a second Open sees the same storage
	again, err := ds.Open(ctx, "d1")
	require.NoError(t, err)
	token, _, err = again.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.NoError(t, s.ClearSession(ctx))
	token, user, err = s.Session(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, user)
}

func TestSessionStore_OnboardingSurvivesLogout(t *testing.T) {
	ctx := context.Background()
	s, err := memory.NewDeviceStore().Open(ctx, "d1")
	require.NoError(t, err)

	require.NoError(t, s.SetOnboarded(ctx))
	require.NoError(t, s.ClearSession(ctx))

	ok, err := s.Onboarded(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionStore_Selections(t *testing.T) {
	ctx := context.Background()
	s, err := memory.NewDeviceStore().Open(ctx, "d1")
	require.NoError(t, err)

	require.NoError(t, s.SetSelection(ctx, domain.KeyCurrentOrderID, "19"))
	v, ok, err := s.Selection(ctx, domain.KeyCurrentOrderID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "19", v)

	require.NoError(t, s.ClearSelection(ctx, domain.KeyCurrentOrderID))
	_, ok, err = s.Selection(ctx, domain.KeyCurrentOrderID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, s.SetSelection(ctx, domain.SelectionKey("customer_token"), "x"))
}

func TestDeviceStore_Purge(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ds := memory.NewDeviceStore().WithClock(c.now)

	old, err := ds.Open(ctx, "old")
	require.NoError(t, err)
	require.NoError(t, old.SaveSession(ctx, domain.Session{Token: "t", User: &domain.UserProfile{ID: 1}}))
	require.NoError(t, old.SetSelection(ctx, domain.KeyCurrentAuctionID, "4"))

	c.t = c.t.Add(48 * time.Hour)
	fresh, err := ds.Open(ctx, "fresh")
	require.NoError(t, err)
	require.NoError(t, fresh.SetSelection(ctx, domain.KeyCurrentAuctionID, "5"))

	n, err := ds.PurgeSelections(ctx, c.t.Add(-24*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := old.Selection(ctx, domain.KeyCurrentAuctionID)
	require.NoError(t, err)
	assert.False(t, ok)
	token, _, err := old.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t", token, "session keys are not selections")

	n, err = ds.PurgeDevices(ctx, c.t.Add(-24*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = ds.Get(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
	_, err = ds.Get(ctx, "fresh")
	assert.NoError(t, err)
	assert.ErrorIs(t, ds.Touch(ctx, "old"), domain.ErrDeviceNotFound)
}
