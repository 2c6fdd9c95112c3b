// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
	ErrUsernameExists     = errors.New("username already exists")
)

// UserInfo is the slice of a user account that authentication needs. Tier
// is the effective tier resolved by the provider when the user was loaded.
type UserInfo struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Tier         tier.Tier
	TokenVersion int
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		username, email, passwordHash string,
	) (*UserInfo, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type ServiceDeps struct {
	Repo         Repository
	JWT          *JWTManager
	UserProvider UserProvider
	Hasher       *core.PasswordHasher
	Redis        *redis.Client
	Clock        clockwork.Clock
}

type Service struct {
	tokens Repository
	jwt    *JWTManager
	users  UserProvider
	hasher *core.PasswordHasher
	redis  *redis.Client
	clock  clockwork.Clock
}

func NewService(deps ServiceDeps) *Service {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		tokens: deps.Repo,
		jwt:    deps.JWT,
		users:  deps.UserProvider,
		hasher: deps.Hasher,
		redis:  deps.Redis,
		clock:  clock,
	}
}

// client describes where a token pair was issued to.
type client struct {
	userAgent string
	ip        string
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	if err := s.ensureAvailable(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Username, req.Email, hash)
	switch {
	case errors.Is(err, core.ErrDuplicateKey):
		return nil, ErrEmailExists
	case err != nil:
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(ctx, user, client{userAgent, ipAddress}, nil)
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return ErrUsernameExists
	}

	taken, err = s.users.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return ErrEmailExists
	}

	return nil
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, core.ErrNotFound) {
		//nolint:errcheck // equalizes latency for unknown accounts
		_, _, _ = s.hasher.VerifyTimingSafe(req.Password, nil)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, upgraded, err := s.hasher.VerifyTimingSafe(req.Password, &user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if upgraded != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, upgraded); err != nil {
			slog.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	return s.issue(ctx, user, client{userAgent, ipAddress}, nil)
}

// Refresh exchanges a refresh token for a new pair in the same family.
// Presenting an already rotated token revokes the whole family.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	stored, err := s.tokens.FindByHash(ctx, core.HashToken(refreshToken))
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}

	switch {
	case stored.IsUsed:
		if err := s.tokens.RevokeByFamilyID(ctx, stored.FamilyID); err != nil {
			slog.ErrorContext(ctx, "revoke reused token family failed",
				"family_id", stored.FamilyID,
				"error", err,
			)
		}
		return nil, ErrTokenReuse
	case stored.IsRevoked():
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	case stored.ExpiredAt(s.clock.Now()):
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return s.issue(ctx, user, client{userAgent, ipAddress}, stored)
}

func (s *Service) Me(ctx context.Context, userID string) (*Identity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	id := identityOf(user)
	return &id, nil
}

// ChangePassword replaces the password and then signs the user out
// everywhere.
func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	ok, _, err := s.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.LogoutAll(ctx, userID)
}

// issue signs an access token, stores a new refresh token and, when
// rotating, links the previous token to its replacement.
func (s *Service) issue(
	ctx context.Context,
	user *UserInfo,
	c client,
	previous *RefreshToken,
) (*AuthResponse, error) {
	access, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	family := ""
	if previous != nil {
		family = previous.FamilyID
	}
	refresh, err := s.jwt.CreateRefreshToken(user.ID, family)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	record := &RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: refresh.Hash,
		FamilyID:  refresh.FamilyID,
		ExpiresAt: refresh.ExpiresAt,
		UserAgent: c.userAgent,
		IPAddress: c.ip,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	if previous != nil {
		if err := s.tokens.MarkAsUsed(ctx, previous.ID, record.ID); err != nil {
			slog.WarnContext(ctx, "mark rotated token failed",
				"token_id", previous.ID,
				"error", err,
			)
		}
	}

	return &AuthResponse{
		User: identityOf(user),
		Tokens: TokenPair{
			AccessToken:  access.Token,
			RefreshToken: refresh.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(access.ExpiresAt.Sub(s.clock.Now()).Seconds()),
			ExpiresAt:    access.ExpiresAt,
		},
	}, nil
}

func identityOf(u *UserInfo) Identity {
	return Identity{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Tier:     u.Tier,
	}
}
