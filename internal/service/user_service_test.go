package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AviRoy1988/receipe-api/internal/cache"
	dom "github.com/AviRoy1988/receipe-api/internal/domain"
	"github.com/AviRoy1988/receipe-api/internal/repo/repotest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*UserService, *repotest.UserRepo) {
	t.Helper()
	r := repotest.NewUserRepo()
	return NewUserService(r, nil, bcrypt.MinCost), r
}

func strPtr(s string) *string { return &s }

func TestNewUserService_CostBounds(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewUserService(nil, nil, 0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewUserService(nil, nil, bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewUserService(nil, nil, 12).cost)
}

func TestRegister_Success(t *testing.T) {
	s, r := newTestService(t)

	u, err := s.Register(context.Background(), RegisterInput{
		Email: "test@GMAIL.com", Password: "testpassword", Name: " Test user ",
	})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "test@gmail.com", u.Email)
	assert.Equal(t, "Test user", u.Name)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsStaff)
	assert.NotEqual(t, "testpassword", u.PasswordHash)

	stored, err := r.GetByEmail(context.Background(), "test@gmail.com")
	require.NoError(t, err)
	assert.True(t, s.CheckPassword(stored, "testpassword"))
	assert.False(t, s.CheckPassword(stored, "wrong"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s, r := newTestService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterInput{Email: "test@gmail.com", Password: "testpassword", Name: "first"})
	require.NoError(t, err)

	_, err = s.Register(ctx, RegisterInput{Email: "test@gmail.com", Password: "otherpassword", Name: "second"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	stored, err := r.GetByEmail(ctx, "test@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Name)
	assert.True(t, s.CheckPassword(stored, "testpassword"))
	assert.Equal(t, 1, r.Len())
}

func TestRegister_Validation(t *testing.T) {
	s, r := newTestService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterInput{Email: "test@gmail.com", Password: "test"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = s.Register(ctx, RegisterInput{Email: "test@gmail.com", Password: strings.Repeat("x", MaxPasswordBytes+1)})
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = s.Register(ctx, RegisterInput{Email: "   ", Password: "testpassword"})
	assert.ErrorIs(t, err, ErrEmailRequired)

	assert.Equal(t, 0, r.Len())
}

func TestRegister_RepoError(t *testing.T) {
	s, r := newTestService(t)
	r.Err = errors.New("db down")

	_, err := s.Register(context.Background(), RegisterInput{Email: "a@b.c", Password: "testpassword"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.NotErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	s, r := newTestService(t)
	ctx := context.Background()

	hash, err := s.HashPassword("test")
	require.NoError(t, err)
	active := r.Put(dom.User{Email: "test@gmail.com", PasswordHash: hash, IsActive: true})
	r.Put(dom.User{Email: "inactive@gmail.com", PasswordHash: hash, IsActive: false})

	u, err := s.Authenticate(ctx, "test@Gmail.com", "test")
	require.NoError(t, err)
	assert.Equal(t, active.ID, u.ID)

	for _, tc := range []struct{ name, email, password string }{
		{"wrong password", "test@gmail.com", "testpass"},
		{"unknown email", "ghost@gmail.com", "test"},
		{"inactive", "inactive@gmail.com", "test"},
		{"empty password", "test@gmail.com", ""},
		{"empty email", "", "test"},
	} {
		_, err := s.Authenticate(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, ErrInvalidCredentials, tc.name)
	}
}

func TestAuthenticate_RepoError(t *testing.T) {
	s, r := newTestService(t)
	r.Err = errors.New("db down")

	_, err := s.Authenticate(context.Background(), "test@gmail.com", "test")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfile(t *testing.T) {
	s, r := newTestService(t)
	u := r.Put(dom.User{Email: "test@gmail.com", Name: "test name", PasswordHash: "h", IsActive: true})

	got, err := s.Profile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "test name", got.Name)
	assert.Empty(t, got.PasswordHash)

	_, err = s.Profile(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfile_Cached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := repotest.NewUserRepo()
	s := NewUserService(r, cache.NewUserCache(rdb, time.Minute), bcrypt.MinCost)
	ctx := context.Background()
	u := r.Put(dom.User{Email: "test@gmail.com", Name: "test name", PasswordHash: "h", IsActive: true})

	_, err := s.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("user:profile:1"))

	// served from cache while the store is failing
	r.Err = errors.New("db down")
	got, err := s.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "test name", got.Name)

	r.Err = nil
	_, err = s.UpdateProfile(ctx, u.ID, UpdateInput{Name: strPtr("new name")})
	require.NoError(t, err)
	assert.True(t, mr.Exists("user:profile:1"))

	// the update was written through
	r.Err = errors.New("db down")
	got, err = s.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new name", got.Name)
	assert.Empty(t, got.PasswordHash)
}

// blockingRepo parks the next GetByID after it has read the row, so a
// profile read can be held open across an update.
type blockingRepo struct {
	*repotest.UserRepo
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newBlockingRepo(r *repotest.UserRepo) *blockingRepo {
	b := &blockingRepo{UserRepo: r, entered: make(chan struct{}), release: make(chan struct{})}
	b.armed.Store(true)
	return b
}

func (b *blockingRepo) GetByID(ctx context.Context, id int64) (dom.User, error) {
	u, err := b.UserRepo.GetByID(ctx, id)
	if b.armed.CompareAndSwap(true, false) {
		close(b.entered)
		<-b.release
	}
	return u, err
}

func TestProfile_ReadRacingUpdateDoesNotCacheStale(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := repotest.NewUserRepo()
	u := r.Put(dom.User{Email: "test@gmail.com", Name: "old", PasswordHash: "h", IsActive: true})
	br := newBlockingRepo(r)
	s := NewUserService(br, cache.NewUserCache(rdb, time.Minute), bcrypt.MinCost)
	ctx := context.Background()

	type result struct {
		u   dom.User
		err error
	}
	done := make(chan result, 1)
	go func() {
		got, err := s.Profile(ctx, u.ID)
		done <- result{got, err}
	}()

	select {
	case <-br.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("profile read never reached the repository")
	}

	_, err := s.UpdateProfile(ctx, u.ID, UpdateInput{Name: strPtr("new name")})
	require.NoError(t, err)

	close(br.release)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "old", res.u.Name)

	stored, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new name", stored.Name)

	got, err := s.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new name", got.Name)

	cached, ok, err := cache.NewUserCache(rdb, time.Minute).Get(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new name", cached.Name)
}

// ctxRepo fails reads once the caller's context is done.
type ctxRepo struct {
	*repotest.UserRepo
}

func (c ctxRepo) GetByID(ctx context.Context, id int64) (dom.User, error) {
	if err := ctx.Err(); err != nil {
		return dom.User{}, err
	}
	return c.UserRepo.GetByID(ctx, id)
}

func TestProfile_CancelledCallerDoesNotFailSharedRead(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := repotest.NewUserRepo()
	u := r.Put(dom.User{Email: "test@gmail.com", Name: "test name", PasswordHash: "h", IsActive: true})
	s := NewUserService(ctxRepo{r}, cache.NewUserCache(rdb, time.Minute), bcrypt.MinCost)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := s.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "test name", got.Name)
}

func TestUpdateProfile(t *testing.T) {
	s, r := newTestService(t)
	ctx := context.Background()
	u, err := s.Register(ctx, RegisterInput{Email: "test@gmail.com", Password: "testpassword", Name: "test name"})
	require.NoError(t, err)

	got, err := s.UpdateProfile(ctx, u.ID, UpdateInput{Name: strPtr("new name"), Password: strPtr("newpassword")})
	require.NoError(t, err)
	assert.Equal(t, "new name", got.Name)
	assert.Equal(t, "test@gmail.com", got.Email)
	assert.Empty(t, got.PasswordHash)

	stored, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new name", stored.Name)
	assert.True(t, s.CheckPassword(stored, "newpassword"))
	assert.False(t, s.CheckPassword(stored, "testpassword"))
}

func TestUpdateProfile_Errors(t *testing.T) {
	s, r := newTestService(t)
	ctx := context.Background()
	first, err := s.Register(ctx, RegisterInput{Email: "first@gmail.com", Password: "testpassword"})
	require.NoError(t, err)
	_, err = s.Register(ctx, RegisterInput{Email: "second@gmail.com", Password: "testpassword"})
	require.NoError(t, err)

	_, err = s.UpdateProfile(ctx, first.ID, UpdateInput{Email: strPtr("second@gmail.com")})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.UpdateProfile(ctx, first.ID, UpdateInput{Password: strPtr("test")})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = s.UpdateProfile(ctx, first.ID, UpdateInput{Email: strPtr(" ")})
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = s.UpdateProfile(ctx, 999, UpdateInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := r.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first@gmail.com", stored.Email)
	assert.True(t, s.CheckPassword(stored, "testpassword"))
}
