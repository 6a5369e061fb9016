package users

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_LocationFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	s := NewService(NewMemory(), moscow, 8)

	assert.Equal(t, moscow, s.Location(ctx, 1))

	require.NoError(t, s.Touch(ctx, 2, "anna", "Анна"))
	assert.Equal(t, moscow, s.Location(ctx, 2))
}

func TestService_SetTimezone(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	s := NewService(store, time.UTC, 8)
	require.NoError(t, s.Touch(ctx, 1, "bob", "Bob"))

	require.NoError(t, s.SetTimezone(ctx, 1, "Asia/Yekaterinburg"))
	assert.Equal(t, "Asia/Yekaterinburg", s.Location(ctx, 1).String())

	err := s.SetTimezone(ctx, 1, "Mars/Olympus")
	assert.ErrorIs(t, err, ErrUnknownTimezone)

	require.NoError(t, s.Touch(ctx, 1, "bob2", "Bob"))
	u, ok, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Asia/Yekaterinburg", u.Timezone, "profile updates keep the zone")
	assert.Equal(t, "bob2", u.Username)
}

func TestService_UnknownStoredZoneUsesDefault(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Upsert(ctx, User{ID: 3, Timezone: "Nowhere/City"}))
	s := NewService(store, time.UTC, 8)

	assert.Equal(t, time.UTC, s.Location(ctx, 3))
}
