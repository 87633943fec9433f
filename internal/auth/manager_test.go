package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/authgate/internal/users"
)

type fakeSession struct {
	values  map[any]any
	options *sessions.Options
	saveErr error
	saves   int
}

func newFakeSession() *fakeSession {
	return &fakeSession{values: make(map[any]any)}
}

func (s *fakeSession) Get(key any) any      { return s.values[key] }
func (s *fakeSession) Set(key any, val any) { s.values[key] = val }
func (s *fakeSession) Clear()               { s.values = make(map[any]any) }
func (s *fakeSession) Options(o sessions.Options) {
	s.options = &o
}
func (s *fakeSession) Save() error {
	s.saves++
	return s.saveErr
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	store   *users.MemoryStore
	manager *Manager
	clock   *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher := &users.BcryptHasher{Cost: bcrypt.MinCost}
	store := users.NewMemoryStore(hasher)
	clock := &testClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	manager, err := NewManager(store, hasher, Options{
		MaxLifetime: time.Hour,
		IdleTimeout: 10 * time.Minute,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         clock.Now,
	})
	require.NoError(t, err)
	return &fixture{store: store, manager: manager, clock: clock}
}

func (f *fixture) addUser(t *testing.T, username, password, email string) *users.User {
	t.Helper()
	u, err := f.store.Insert(context.Background(), users.Candidate{Username: username, Password: password, Email: email})
	require.NoError(t, err)
	return u
}

func TestNewManagerRequiresDependencies(t *testing.T) {
	hasher := &users.BcryptHasher{Cost: bcrypt.MinCost}
	_, err := NewManager(nil, hasher, Options{})
	assert.Error(t, err)
	_, err = NewManager(users.NewMemoryStore(hasher), nil, Options{})
	assert.Error(t, err)
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice", "secret1", "alice@example.com")
	sess := newFakeSession()

	result, err := f.manager.Login(context.Background(), sess, "alice", "secret1")
	require.NoError(t, err)

	assert.Equal(t, users.PublicUser{ID: alice.ID, Username: "alice", Email: "alice@example.com"}, result.User)
	assert.NotEmpty(t, result.CSRFToken)
	assert.Equal(t, alice.ID, sess.Get(sessionKeyUserID))
	assert.Equal(t, "alice", sess.Get(sessionKeyUsername))
	assert.Equal(t, f.clock.now.Unix(), sess.Get(sessionKeyIssuedAt))
	assert.Equal(t, result.CSRFToken, CSRFToken(sess))
	assert.Equal(t, 1, sess.saves)
}

func TestLoginMissingFields(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "secret1", "")

	for _, tc := range []struct{ username, password string }{
		{"", "secret1"},
		{"alice", ""},
		{"", ""},
	} {
		sess := newFakeSession()
		_, err := f.manager.Login(context.Background(), sess, tc.username, tc.password)
		assert.ErrorIs(t, err, ErrMissingField)
		assert.Nil(t, sess.Get(sessionKeyUserID))
	}
}

func TestLoginInvalidCredentialsIsIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "secret1", "")

	sess := newFakeSession()
	_, wrongPassword := f.manager.Login(context.Background(), sess, "alice", "wrong")
	_, unknownUser := f.manager.Login(context.Background(), sess, "mallory", "secret1")

	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownUser)
	assert.Nil(t, sess.Get(sessionKeyUserID))
	assert.Zero(t, sess.saves)
}

func TestLoginOverwritesExistingSession(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "secret1", "")
	bob := f.addUser(t, "bob", "secret2", "")
	sess := newFakeSession()

	first, err := f.manager.Login(context.Background(), sess, "alice", "secret1")
	require.NoError(t, err)
	second, err := f.manager.Login(context.Background(), sess, "bob", "secret2")
	require.NoError(t, err)

	assert.Equal(t, bob.ID, sess.Get(sessionKeyUserID))
	assert.Equal(t, "bob", sess.Get(sessionKeyUsername))
	assert.NotEqual(t, first.CSRFToken, second.CSRFToken)
}

func TestLoginSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "secret1", "")
	sess := newFakeSession()
	sess.saveErr = errors.New("backend down")

	_, err := f.manager.Login(context.Background(), sess, "alice", "secret1")
	assert.ErrorIs(t, err, ErrSessionSave)
	assert.ErrorContains(t, err, "backend down")
}

func TestLogoutClearsSession(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "secret1", "")
	sess := newFakeSession()

	_, err := f.manager.Login(context.Background(), sess, "alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.manager.Logout(context.Background(), sess))
	assert.Empty(t, sess.values)
	require.NotNil(t, sess.options)
	assert.Equal(t, -1, sess.options.MaxAge)

	_, err = f.manager.CurrentUser(context.Background(), sess)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogoutFailure(t *testing.T) {
	f := newFixture(t)
	sess := newFakeSession()
	sess.saveErr = errors.New("destroy failed")

	err := f.manager.Logout(context.Background(), sess)
	require.ErrorIs(t, err, ErrSessionFailure)

	var authErr *Error
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, 500, authErr.Status)
	assert.Equal(t, "Logout failed", authErr.Message)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser(t, "alice", "secret1", "alice@example.com")
	sess := newFakeSession()

	_, err := f.manager.CurrentUser(context.Background(), sess)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = f.manager.Login(context.Background(), sess, "alice", "secret1")
	require.NoError(t, err)

	user, err := f.manager.CurrentUser(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, alice.Public(), user)
}

func TestCurrentUserDanglingSession(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "secret1", "")
	sess := newFakeSession()

	_, err := f.manager.Login(context.Background(), sess, "alice", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.store.Reset(context.Background()))

	_, err = f.manager.CurrentUser(context.Background(), sess)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Nil(t, sess.Get(sessionKeyUserID))
}

func TestAuthenticateTimeouts(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "secret1", "")
	ctx := context.Background()

	t.Run("idle", func(t *testing.T) {
		sess := newFakeSession()
		_, err := f.manager.Login(ctx, sess, "alice", "secret1")
		require.NoError(t, err)

		f.clock.Advance(11 * time.Minute)
		_, err = f.manager.Authenticate(ctx, sess)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Nil(t, sess.Get(sessionKeyUserID))
	})

	t.Run("activity extends idle window", func(t *testing.T) {
		sess := newFakeSession()
		_, err := f.manager.Login(ctx, sess, "alice", "secret1")
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			f.clock.Advance(9 * time.Minute)
			_, err = f.manager.Authenticate(ctx, sess)
			require.NoError(t, err)
		}
	})

	t.Run("max lifetime", func(t *testing.T) {
		sess := newFakeSession()
		_, err := f.manager.Login(ctx, sess, "alice", "secret1")
		require.NoError(t, err)

		for i := 0; i < 6; i++ {
			f.clock.Advance(9 * time.Minute)
			_, err = f.manager.Authenticate(ctx, sess)
			require.NoError(t, err)
		}
		f.clock.Advance(9 * time.Minute)
		_, err = f.manager.Authenticate(ctx, sess)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("missing issue time", func(t *testing.T) {
		sess := newFakeSession()
		sess.Set(sessionKeyUserID, int64(1))
		_, err := f.manager.Authenticate(ctx, sess)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestReadInt64(t *testing.T) {
	for _, v := range []any{int64(7), 7, int32(7), float64(7)} {
		n, ok := readInt64(v)
		assert.True(t, ok)
		assert.Equal(t, int64(7), n)
	}
	_, ok := readInt64("7")
	assert.False(t, ok)
	_, ok = readInt64(nil)
	assert.False(t, ok)
}
