// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/uznavaykin/internal/core"
)

type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: map[string]*RefreshToken{}}
}

func (m *memoryTokens) Create(_ context.Context, token *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *token
	m.tokens[token.ID] = &cp
	return nil
}

func (m *memoryTokens) FindByHash(
	_ context.Context,
	hash string,
) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("find: %w", core.ErrNotFound)
}

func (m *memoryTokens) FindByID(_ context.Context, id string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, fmt.Errorf("find: %w", core.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *memoryTokens) MarkAsUsed(_ context.Context, id, replacedByID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tokens[id]
	t.IsUsed = true
	t.ReplacedByID = &replacedByID
	return nil
}

func (m *memoryTokens) RevokeByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.tokens[id].RevokedAt = &now
	return nil
}

func (m *memoryTokens) RevokeByFamilyID(_ context.Context, familyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if t.FamilyID == familyID {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *memoryTokens) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *memoryTokens) ActiveSessions(
	_ context.Context,
	userID string,
	now time.Time,
) ([]RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RefreshToken
	for _, t := range m.tokens {
		if t.UserID == userID && !t.IsUsed && !t.IsRevoked() && !t.ExpiredAt(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memoryTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tokens {
		if t.ExpiresAt.Before(before) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func (m *memoryUsers) find(match func(*UserInfo) bool) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("find user: %w", core.ErrNotFound)
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	return m.find(func(u *UserInfo) bool { return u.Email == email })
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	return m.find(func(u *UserInfo) bool { return u.ID == id })
}

func (m *memoryUsers) Create(
	_ context.Context,
	username, email, passwordHash string,
) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &UserInfo{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         "user",
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) UsernameExists(_ context.Context, username string) (bool, error) {
	_, err := m.find(func(u *UserInfo) bool { return u.Username == username })
	return err == nil, nil
}

func (m *memoryUsers) EmailExists(_ context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(context.Background(), email)
	return err == nil, nil
}

func (m *memoryUsers) IncrementTokenVersion(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].TokenVersion++
	return nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].PasswordHash = hash
	return nil
}

type serviceFixture struct {
	svc    *Service
	tokens *memoryTokens
	users  *memoryUsers
	clock  *clockwork.FakeClock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	hasher, err := core.NewPasswordHasher(core.Argon2Params{
		Memory: 1024, Time: 1, Threads: 1, KeyLen: 16, SaltLen: 8,
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &serviceFixture{
		tokens: newMemoryTokens(),
		users:  &memoryUsers{users: map[string]*UserInfo{}},
		clock:  clock,
	}
	f.svc = NewService(ServiceDeps{
		Repo:         f.tokens,
		JWT:          newTestJWTManager(t, clock),
		UserProvider: f.users,
		Hasher:       hasher,
		Redis:        rdb,
		Clock:        clock,
	})

	return f
}

func (f *serviceFixture) register(t *testing.T) *AuthResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "secret1",
	}, "test", "127.0.0.1")
	require.NoError(t, err)
	return resp
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Username: "reader", Email: "other@example.com", Password: "secret1",
	}, "", "")
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = f.svc.Register(context.Background(), RegisterRequest{
		Username: "other", Email: "reader@example.com", Password: "secret1",
	}, "", "")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLogin(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	resp, err := f.svc.Login(context.Background(), LoginRequest{
		Email: "reader@example.com", Password: "secret1",
	}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "reader", resp.User.Username)
	assert.Equal(t, 900, resp.Tokens.ExpiresIn)

	_, err = f.svc.Login(context.Background(), LoginRequest{
		Email: "reader@example.com", Password: "wrong-pass",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), LoginRequest{
		Email: "nobody@example.com", Password: "secret1",
	}, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	f := newServiceFixture(t)
	first := f.register(t)
	ctx := context.Background()

	second, err := f.svc.Refresh(ctx, first.Tokens.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	_, err = f.svc.Refresh(ctx, first.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, ErrTokenReuse)

	_, err = f.svc.Refresh(ctx, second.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRefreshExpired(t *testing.T) {
	f := newServiceFixture(t)
	resp := f.register(t)

	f.clock.Advance(8 * 24 * time.Hour)

	_, err := f.svc.Refresh(context.Background(), resp.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	f := newServiceFixture(t)
	resp := f.register(t)
	ctx := context.Background()

	claims, err := f.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, resp.Tokens.RefreshToken, claims))

	_, err = f.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = f.svc.Refresh(ctx, resp.Tokens.RefreshToken, "", "")
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestChangePasswordRevokesOutstandingTokens(t *testing.T) {
	f := newServiceFixture(t)
	resp := f.register(t)
	ctx := context.Background()
	userID := resp.User.ID

	err := f.svc.ChangePassword(ctx, userID, "bad-current", "newsecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.svc.ChangePassword(ctx, userID, "secret1", "newsecret"))

	_, err = f.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = f.svc.Login(ctx, LoginRequest{
		Email: "reader@example.com", Password: "newsecret",
	}, "", "")
	assert.NoError(t, err)
}

func TestDeleteExpiredTokens(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	n, err := f.svc.DeleteExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(9 * 24 * time.Hour)

	n, err = f.svc.DeleteExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSessionsListAndRevoke(t *testing.T) {
	f := newServiceFixture(t)
	resp := f.register(t)
	ctx := context.Background()

	sessions, err := f.svc.Sessions(ctx, resp.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "127.0.0.1", sessions[0].IPAddress)

	err = f.svc.RevokeSession(ctx, "someone-else", sessions[0].ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, f.svc.RevokeSession(ctx, resp.User.ID, sessions[0].ID))

	sessions, err = f.svc.Sessions(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
