package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore("not a url")
	assert.Error(t, err)
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRefreshSession(ctx, "hash-1", "user-123", time.Now().Add(24*time.Hour)))

	sess, err := store.LookupRefreshSession(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "user-123", sess.UserID)
	assert.False(t, sess.CreatedAt.IsZero())

	assert.True(t, mr.Exists("refresh:hash-1"))
	ttl := mr.TTL("refresh:hash-1")
	assert.Greater(t, ttl, 23*time.Hour)
}

func TestLookupExpiredSession(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRefreshSession(ctx, "expiring", "user-456", time.Now().Add(time.Minute)))
	mr.FastForward(2 * time.Minute)

	_, err := store.LookupRefreshSession(ctx, "expiring")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSaveRejectsPastExpiry(t *testing.T) {
	store, _ := setupTestRedis(t)
	err := store.SaveRefreshSession(context.Background(), "old", "u", time.Now().Add(-time.Second))
	assert.Error(t, err)
}

func TestLookupNonExistentSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	_, err := store.LookupRefreshSession(context.Background(), "non-existent")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRevokeRefreshSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	require.NoError(t, store.SaveRefreshSession(ctx, "token-1", "user-1", expires))
	require.NoError(t, store.SaveRefreshSession(ctx, "token-2", "user-2", expires))

	require.NoError(t, store.RevokeRefreshSession(ctx, "token-1"))
	require.NoError(t, store.RevokeRefreshSession(ctx, "never-existed"))

	_, err := store.LookupRefreshSession(ctx, "token-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess, err := store.LookupRefreshSession(ctx, "token-2")
	require.NoError(t, err)
	assert.Equal(t, "user-2", sess.UserID)
}

func TestLookupCorruptSession(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("refresh:bad", "{not json"))

	_, err := store.LookupRefreshSession(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}
