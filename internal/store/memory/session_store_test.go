package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/gitclub-console/internal/models"
	"github.com/wolfeidau/gitclub-console/internal/store"
)

func newSession(t *testing.T, username string, ttl time.Duration) *models.Session {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err)

	now := time.Now()
	return &models.Session{
		SessionID:  id,
		UserID:     1,
		Username:   username,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastUsedAt: now,
		UserAgent:  "test",
		IPAddress:  "127.0.0.1",
	}
}

func TestSessionStore_CreateGet(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	sess := newSession(t, "john", time.Hour)
	require.NoError(t, s.Create(ctx, sess))

	got, err := s.Get(ctx, sess.SessionID)
	require.NoError(t, err)
	require.Equal(t, "john", got.Username)

	// returned sessions are copies
	got.Username = "mutated"
	again, err := s.Get(ctx, sess.SessionID)
	require.NoError(t, err)
	require.Equal(t, "john", again.Username)

	require.ErrorIs(t, s.Create(ctx, sess), store.ErrSessionExists)
}

func TestSessionStore_Get_errors(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	_, err := s.Get(ctx, uuid.New())
	require.ErrorIs(t, err, store.ErrSessionNotFound)

	expired := newSession(t, "john", -time.Minute)
	require.NoError(t, s.Create(ctx, expired))

	_, err = s.Get(ctx, expired.SessionID)
	require.ErrorIs(t, err, store.ErrSessionExpired)
}

func TestSessionStore_UpdateLastUsed(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	sess := newSession(t, "john", time.Hour)
	sess.LastUsedAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.Create(ctx, sess))

	require.NoError(t, s.UpdateLastUsed(ctx, sess.SessionID))

	got, err := s.Get(ctx, sess.SessionID)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), got.LastUsedAt, time.Second)

	require.ErrorIs(t, s.UpdateLastUsed(ctx, uuid.New()), store.ErrSessionNotFound)
}

func TestSessionStore_Delete(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	sess := newSession(t, "john", time.Hour)
	require.NoError(t, s.Create(ctx, sess))

	require.NoError(t, s.Delete(ctx, sess.SessionID))
	require.ErrorIs(t, s.Delete(ctx, sess.SessionID), store.ErrSessionNotFound)

	_, err := s.Get(ctx, sess.SessionID)
	require.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestSessionStore_DeleteByUsername(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	for range 3 {
		require.NoError(t, s.Create(ctx, newSession(t, "john", time.Hour)))
	}
	other := newSession(t, "paul", time.Hour)
	require.NoError(t, s.Create(ctx, other))

	count, err := s.DeleteByUsername(ctx, "john")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	count, err = s.DeleteByUsername(ctx, "john")
	require.NoError(t, err)
	require.Equal(t, 0, count)

	_, err = s.Get(ctx, other.SessionID)
	require.NoError(t, err)
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	live := newSession(t, "john", time.Hour)
	require.NoError(t, s.Create(ctx, live))
	require.NoError(t, s.Create(ctx, newSession(t, "john", -time.Minute)))
	require.NoError(t, s.Create(ctx, newSession(t, "paul", -time.Minute)))

	count, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = s.DeleteByUsername(ctx, "john")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestSessionStore_clock(t *testing.T) {
	now := time.Now()
	s := NewSessionStore(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	sess := newSession(t, "john", time.Minute)
	require.NoError(t, s.Create(ctx, sess))

	now = now.Add(2 * time.Minute)
	_, err := s.Get(ctx, sess.SessionID)
	require.ErrorIs(t, err, store.ErrSessionExpired)
	require.Equal(t, 1, s.Len())

	count, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, 0, s.Len())
}
