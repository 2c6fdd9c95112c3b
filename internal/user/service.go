// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/uznavaykin/internal/auth"
	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/entitlement"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

type Service struct {
	repo     Repository
	resolver *entitlement.Resolver
}

func NewService(repo Repository, resolver *entitlement.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

func (s *Service) EffectiveTier(u *User) tier.Tier {
	return s.resolver.Resolve(u.Entitlement())
}

// EffectiveTierByID loads the user and resolves their tier as of now.
func (s *Service) EffectiveTierByID(
	ctx context.Context,
	id string,
) (tier.Tier, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return tier.Start, err
	}
	return s.EffectiveTier(u), nil
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return s.toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	username, email, passwordHash string,
) (*auth.UserInfo, error) {
	user := &User{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(username),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Tier:         tier.Start,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.toUserInfo(user), nil
}

func (s *Service) UsernameExists(
	ctx context.Context,
	username string,
) (bool, error) {
	return exists(s.repo.GetByUsername(ctx, strings.TrimSpace(username)))
}

func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	return exists(s.repo.GetByEmail(ctx, normalizeEmail(email)))
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

// EnsureAdmin promotes username to administrator, creating the account
// with passwordHash when it does not exist yet.
func (s *Service) EnsureAdmin(
	ctx context.Context,
	username, email, passwordHash string,
) error {
	existing, err := s.repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.IsAdmin {
			return nil
		}
		if err := s.repo.SetAdmin(ctx, existing.ID, true); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		slog.Info("existing user promoted to admin", "username", username)
		return nil
	case !errors.Is(err, core.ErrNotFound):
		return fmt.Errorf("lookup admin: %w", err)
	}

	admin := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Tier:         tier.Start,
		IsAdmin:      true,
	}

	if err := s.repo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	slog.Info("admin account created", "username", username)
	return nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		user.Email = normalizeEmail(*req.Email)
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) SetAdmin(
	ctx context.Context,
	requesterID, targetID string,
	isAdmin bool,
) (*User, error) {
	if requesterID == targetID && !isAdmin {
		return nil, fmt.Errorf("revoke own admin: %w", core.ErrForbidden)
	}

	if err := s.repo.SetAdmin(ctx, targetID, isAdmin); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, targetID)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	if params.Tier != "" {
		if _, err := tier.Parse(params.Tier); err != nil {
			return nil, 0, fmt.Errorf("list users: %w", core.ErrInvalidInput)
		}
	}
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.UpdateUser(ctx, userID, req)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.CountByTier(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{StoredByTier: make(map[string]int, len(counts))}
	for _, c := range counts {
		stats.Total += c.Total
		stats.Admins += c.Admins
		stats.StoredByTier[c.Tier.String()] = c.Total
	}

	return stats, nil
}

func exists(_ *User, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role(),
		Tier:         s.EffectiveTier(u),
		TokenVersion: u.TokenVersion,
	}
}

var _ auth.UserProvider = (*Service)(nil)
