// AngelaMos | 2026
// sessions.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/middleware"
)

const (
	denylistPrefix = "auth:denylist:"

	// expired refresh tokens survive cleanup for this long
	expiredTokenGrace = 24 * time.Hour
)

// VerifyAccessToken checks the signature, the denylist and the user's
// token version, so logout and logout-all take effect immediately.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	denied, err := s.redis.Exists(ctx, denylistPrefix+claims.JTI).Result()
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if denied > 0 {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if claims.TokenVersion < user.TokenVersion {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

// Logout revokes the refresh token and denylists the access token that
// made the request for the rest of its lifetime.
func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	claims *middleware.AccessTokenClaims,
) error {
	if claims == nil {
		return fmt.Errorf("logout: %w", core.ErrUnauthorized)
	}

	if err := s.denyAccessToken(ctx, claims); err != nil {
		return err
	}

	stored, err := s.tokens.FindByHash(ctx, core.HashToken(refreshToken))
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find token: %w", err)
	}
	if stored.UserID != claims.UserID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	err = s.tokens.RevokeByID(ctx, stored.ID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

// LogoutAll revokes every refresh token of the user and bumps the token
// version so outstanding access tokens stop verifying.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}
	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}
	return nil
}

func (s *Service) denyAccessToken(
	ctx context.Context,
	claims *middleware.AccessTokenClaims,
) error {
	ttl := claims.ExpiresAt.Sub(s.clock.Now())
	if claims.JTI == "" || ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, denylistPrefix+claims.JTI, 1, ttl).Err(); err != nil {
		return fmt.Errorf("denylist token: %w", err)
	}
	return nil
}

func (s *Service) Sessions(ctx context.Context, userID string) ([]Session, error) {
	tokens, err := s.tokens.ActiveSessions(ctx, userID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]Session, len(tokens))
	for i := range tokens {
		sessions[i] = newSession(tokens[i])
	}
	return sessions, nil
}

func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	token, err := s.tokens.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	if token.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	if err := s.tokens.RevokeByID(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// DeleteExpiredTokens purges refresh tokens that expired more than a day
// ago.
func (s *Service) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.clock.Now().Add(-expiredTokenGrace))
}

var _ middleware.TokenVerifier = (*Service)(nil)
