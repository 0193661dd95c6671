package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	dom "github.com/AviRoy1988/receipe-api/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyProfile = "user:profile:"

// cachedUser is what gets stored; the password hash never leaves Postgres.
type cachedUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserCache caches user profiles by id in Redis.
type UserCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewUserCache returns a new UserCache.
func NewUserCache(rdb *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached user, ok=false on a miss.
// The returned user has an empty PasswordHash.
func (c *UserCache) Get(ctx context.Context, id int64) (dom.User, bool, error) {
	b, err := c.rdb.Get(ctx, profileKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return dom.User{}, false, nil
	}
	if err != nil {
		return dom.User{}, false, err
	}
	var cu cachedUser
	if err := json.Unmarshal(b, &cu); err != nil {
		return dom.User{}, false, err
	}
	return dom.User{
		ID:        cu.ID,
		Email:     cu.Email,
		Name:      cu.Name,
		IsActive:  cu.IsActive,
		IsStaff:   cu.IsStaff,
		CreatedAt: cu.CreatedAt,
		UpdatedAt: cu.UpdatedAt,
	}, true, nil
}

// Set stores the user without its password hash.
func (c *UserCache) Set(ctx context.Context, u dom.User) error {
	b, err := json.Marshal(cachedUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsActive:  u.IsActive,
		IsStaff:   u.IsStaff,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, profileKey(u.ID), b, c.ttl).Err()
}

// Invalidate drops the cached profile (on write).
func (c *UserCache) Invalidate(ctx context.Context, id int64) error {
	return c.rdb.Del(ctx, profileKey(id)).Err()
}

func profileKey(id int64) string {
	return keyProfile + strconv.FormatInt(id, 10)
}
