package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTokenStore(rdb, ttl), mr
}

func TestTokenStore_IssueResolve(t *testing.T) {
	s, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	tok, err := s.Issue(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, tok, 2*tokenBytes)
	assert.Equal(t, time.Hour, mr.TTL("token:"+tok))

	id, ok, err := s.UserID(ctx, tok)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok, err = s.UserID(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.UserID(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_TokensCoexist(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	first, err := s.Issue(ctx, 1)
	require.NoError(t, err)
	second, err := s.Issue(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, tok := range []string{first, second} {
		id, ok, err := s.UserID(ctx, tok)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(1), id)
	}
}

func TestTokenStore_ExpiryAndRevoke(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	tok, err := s.Issue(ctx, 1)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, ok, err := s.UserID(ctx, tok)
	require.NoError(t, err)
	assert.False(t, ok)

	tok, err = s.Issue(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, tok))
	_, ok, err = s.UserID(ctx, tok)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenStore_DefaultTTL(t *testing.T) {
	s, _ := newTestStore(t, 0)
	assert.Equal(t, tokenTTL, s.ttl)
}

func TestTokenStore_CorruptValue(t *testing.T) {
	s, mr := newTestStore(t, time.Hour)
	require.NoError(t, mr.Set("token:abc", "not-a-number"))

	_, ok, err := s.UserID(context.Background(), "abc")
	assert.Error(t, err)
	assert.False(t, ok)
}
