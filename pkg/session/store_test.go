package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, ttl time.Duration) *Session {
	t.Helper()
	id, err := GenerateID()
	require.NoError(t, err)
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Subject:   "dev@example.com",
		Provider:  "google",
	}
}

// storeConformance runs the Store contract against any implementation
func storeConformance(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("get absent returns nil", func(t *testing.T) {
		s, err := store.Get(ctx, "no-such-session")
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("save and get round trip", func(t *testing.T) {
		s := newTestSession(t, time.Hour)
		require.NoError(t, store.Save(ctx, s))

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, s.Subject, got.Subject)
		assert.Equal(t, s.Provider, got.Provider)
	})

	t.Run("delete removes", func(t *testing.T) {
		s := newTestSession(t, time.Hour)
		require.NoError(t, store.Save(ctx, s))
		require.NoError(t, store.Delete(ctx, s.ID))

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("mutations persist on re-save", func(t *testing.T) {
		s := newTestSession(t, time.Hour)
		require.NoError(t, store.Save(ctx, s))

		s.IsAdmin = true
		s.SfOrgID = "00D000000000001AAA"
		require.NoError(t, store.Save(ctx, s))

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.IsAdmin)
		assert.Equal(t, "00D000000000001AAA", got.SfOrgID)
	})
}

func TestMemoryStore(t *testing.T) {
	storeConformance(t, NewMemoryStore())
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	s := newTestSession(t, -time.Minute)
	require.NoError(t, store.Save(context.Background(), s))

	got, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	storeConformance(t, NewRedisStore(client))
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)

	s := newTestSession(t, time.Minute)
	require.NoError(t, store.Save(context.Background(), s))

	mr.FastForward(2 * time.Minute)

	got, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateID()
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
