// Package repotest provides an in-memory repo.UserRepo that fails the way
// Postgres does, for tests of the layers above the repository.
package repotest

import (
	"context"
	"sync"
	"time"

	dom "github.com/AviRoy1988/receipe-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// UserRepo is an in-memory user store with a unique email index.
type UserRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]dom.User

	// Err, when set, is returned by every method.
	Err error
}

// NewUserRepo returns an empty UserRepo.
func NewUserRepo() *UserRepo {
	return &UserRepo{byID: make(map[int64]dom.User)}
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", Message: "duplicate key value violates unique constraint"}
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return dom.User{}, r.Err
	}
	u, ok := r.byID[id]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return dom.User{}, r.Err
	}
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return dom.User{}, pgx.ErrNoRows
}

func (r *UserRepo) Create(_ context.Context, u dom.User) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return dom.User{}, r.Err
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return dom.User{}, uniqueViolation()
		}
	}
	r.nextID++
	now := time.Now().UTC()
	u.ID = r.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	r.byID[u.ID] = u
	return u, nil
}

func (r *UserRepo) Update(_ context.Context, u dom.User) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return dom.User{}, r.Err
	}
	cur, ok := r.byID[u.ID]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	for id, existing := range r.byID {
		if id != u.ID && existing.Email == u.Email {
			return dom.User{}, uniqueViolation()
		}
	}
	cur.Email = u.Email
	cur.Name = u.Name
	cur.PasswordHash = u.PasswordHash
	cur.UpdatedAt = time.Now().UTC()
	r.byID[u.ID] = cur
	return cur, nil
}

// Put stores u as is, bypassing validation, and returns it with its id set.
func (r *UserRepo) Put(u dom.User) dom.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	r.byID[u.ID] = u
	return u
}

// SetActive flips the active flag of an existing user.
func (r *UserRepo) SetActive(id int64, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byID[id]
	u.IsActive = active
	r.byID[id] = u
}

// Len reports how many users are stored.
func (r *UserRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
