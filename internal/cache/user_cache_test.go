package cache

import (
	"context"
	"testing"
	"time"

	dom "github.com/AviRoy1988/receipe-api/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*UserCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewUserCache(rdb, ttl), mr
}

func TestUserCache_MissSetHit(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	u := dom.User{ID: 1, Email: "test@gmail.com", Name: "test name", PasswordHash: "secret-hash", IsActive: true}
	require.NoError(t, c.Set(ctx, u))

	raw, err := mr.Get("user:profile:1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret-hash")

	got, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "test name", got.Name)
	assert.Equal(t, "test@gmail.com", got.Email)
	assert.True(t, got.IsActive)
	assert.Empty(t, got.PasswordHash)
}

func TestUserCache_TTLAndInvalidate(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, dom.User{ID: 2, Email: "a@b.c"}))
	assert.Equal(t, 30*time.Second, mr.TTL("user:profile:2"))

	require.NoError(t, c.Invalidate(ctx, 2))
	_, ok, err := c.Get(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, dom.User{ID: 3}))
	mr.FastForward(31 * time.Second)
	_, ok, err = c.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserCache_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set("user:profile:4", "{not json"))

	_, ok, err := c.Get(context.Background(), 4)
	assert.Error(t, err)
	assert.False(t, ok)
}
