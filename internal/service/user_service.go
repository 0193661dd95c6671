package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/AviRoy1988/receipe-api/internal/cache"
	dom "github.com/AviRoy1988/receipe-api/internal/domain"
	"github.com/AviRoy1988/receipe-api/internal/repo"
	"github.com/AviRoy1988/receipe-api/internal/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
)

// MinPasswordLength is the shortest password accepted on create and update.
const MinPasswordLength = 5

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

var (
	ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
	ErrNotFound           = errors.New("user not found")
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	IsStaff  bool
}

// UpdateInput carries a partial profile update; nil fields are left as they are.
type UpdateInput struct {
	Email    *string
	Name     *string
	Password *string
}

// UserService handles user auth and profile logic.
type UserService struct {
	repo  repo.UserRepo
	cache *cache.UserCache
	sf    singleflight.Group
	cost  int

	// genMu guards gens and orders cache writes against updates.
	genMu sync.Mutex
	gens  map[int64]uint64

	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserService returns a new UserService. If c is nil, profile caching is
// disabled. A bcrypt cost outside bcrypt's bounds falls back to the default.
func NewUserService(r repo.UserRepo, c *cache.UserCache, cost int) *UserService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &UserService{repo: r, cache: c, cost: cost, gens: make(map[int64]uint64)}
}

// HashPassword returns the bcrypt hash of password at the service cost.
func (s *UserService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash of u.
func (s *UserService) CheckPassword(u dom.User, password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Register creates a new active user with a hashed password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (dom.User, error) {
	email := dom.NormalizeEmail(in.Email)
	if email == "" {
		return dom.User{}, ErrEmailRequired
	}
	if err := validatePassword(in.Password); err != nil {
		return dom.User{}, err
	}
	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return dom.User{}, err
	}
	u, err := s.repo.Create(ctx, dom.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      in.IsStaff,
	})
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.User{}, ErrEmailTaken
		}
		return dom.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate checks email and password; returns the user if valid.
// Unknown emails still pay for one bcrypt comparison.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (dom.User, error) {
	email = dom.NormalizeEmail(email)
	if email == "" || password == "" {
		return dom.User{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return dom.User{}, ErrInvalidCredentials
		}
		return dom.User{}, fmt.Errorf("get user: %w", err)
	}
	if !s.CheckPassword(u, password) || !u.IsActive {
		return dom.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Profile returns the user by id without its password hash.
func (s *UserService) Profile(ctx context.Context, id int64) (dom.User, error) {
	if s.cache == nil {
		return s.loadProfile(ctx, id)
	}
	v, err, _ := s.sf.Do(profileKey(id), func() (interface{}, error) {
		// Shared by every caller in the flight, so one cancelled request
		// must not fail the others.
		ctx := context.WithoutCancel(ctx)
		if u, ok, err := s.cache.Get(ctx, id); err == nil && ok {
			return u, nil
		}
		gen := s.generation(id)
		u, err := s.loadProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		s.setCached(ctx, u, gen)
		return u, nil
	})
	if err != nil {
		return dom.User{}, err
	}
	return v.(dom.User), nil
}

// UpdateProfile applies in to the user's own record and returns it without
// its password hash.
func (s *UserService) UpdateProfile(ctx context.Context, id int64, in UpdateInput) (dom.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, ErrNotFound
		}
		return dom.User{}, fmt.Errorf("get user: %w", err)
	}
	if in.Email != nil {
		email := dom.NormalizeEmail(*in.Email)
		if email == "" {
			return dom.User{}, ErrEmailRequired
		}
		u.Email = email
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return dom.User{}, err
		}
		hash, err := s.HashPassword(*in.Password)
		if err != nil {
			return dom.User{}, err
		}
		u.PasswordHash = hash
	}

	updated, err := s.repo.Update(ctx, u)
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.User{}, ErrEmailTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, ErrNotFound
		}
		return dom.User{}, fmt.Errorf("update user: %w", err)
	}
	updated.PasswordHash = ""
	s.storeUpdated(ctx, updated)
	return updated, nil
}

func (s *UserService) loadProfile(ctx context.Context, id int64) (dom.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, ErrNotFound
		}
		return dom.User{}, fmt.Errorf("get user: %w", err)
	}
	u.PasswordHash = ""
	return u, nil
}

func profileKey(id int64) string {
	return "profile:" + strconv.FormatInt(id, 10)
}

func (s *UserService) generation(id int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[id]
}

// setCached writes a profile read from the database unless an update
// happened since the read started.
func (s *UserService) setCached(ctx context.Context, u dom.User, gen uint64) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gens[u.ID] != gen {
		return
	}
	_ = s.cache.Set(ctx, u)
}

// storeUpdated writes the updated profile through to the cache and makes
// reads still in flight skip their cache write.
func (s *UserService) storeUpdated(ctx context.Context, u dom.User) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gens[u.ID]++
	s.sf.Forget(profileKey(u.ID))
	if err := s.cache.Set(ctx, u); err != nil {
		_ = s.cache.Invalidate(ctx, u.ID)
	}
}

func (s *UserService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), s.cost)
	})
	return s.dummyHash
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
