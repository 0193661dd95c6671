package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix = "token:"
	tokenTTL       = 30 * 24 * time.Hour
	tokenBytes     = 20
)

// TokenStore keeps opaque bearer tokens in Redis, each mapped to a user id.
// Issuing a token leaves the user's earlier tokens untouched.
type TokenStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTokenStore returns a new token store.
func NewTokenStore(rdb *redis.Client, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = tokenTTL
	}
	return &TokenStore{rdb: rdb, ttl: ttl}
}

// Issue creates a new token for userID and returns it.
func (s *TokenStore) Issue(ctx context.Context, userID int64) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	ok, err := s.rdb.SetNX(ctx, tokenKeyPrefix+token, userID, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("store token: collision")
	}
	return token, nil
}

// UserID resolves a token. ok is false for unknown or expired tokens.
func (s *TokenStore) UserID(ctx context.Context, token string) (int64, bool, error) {
	if token == "" {
		return 0, false, nil
	}
	v, err := s.rdb.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("token: bad user id %q", v)
	}
	return id, true, nil
}

// Revoke removes a token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, tokenKeyPrefix+token).Err()
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}
