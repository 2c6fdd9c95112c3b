// AngelaMos | 2026
// dto.go

package user

import (
	"math"
	"time"

	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

type UpdateUserRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=80,alphanumunicode"`
	Email    *string `json:"email,omitempty"    validate:"omitempty,email,max=120"`
}

type UpdateAdminRequest struct {
	IsAdmin *bool `json:"is_admin" validate:"required"`
}

type UserResponse struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	Tier             tier.Tier  `json:"tier"`
	EffectiveTier    tier.Tier  `json:"effective_tier"`
	TierExpiresAt    *time.Time `json:"tier_expires_at"`
	PremiumBonusUsed int        `json:"premium_bonus_used"`
	VIPBonusUsed     int        `json:"vip_bonus_used"`
	LastActiveAt     *time.Time `json:"last_active_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type ListUsersParams struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	Search     string `json:"search"`
	Tier       string `json:"tier"`
	AdminsOnly bool   `json:"admins_only"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	if maxPage := math.MaxInt32 / p.PageSize; p.Page > maxPage {
		p.Page = maxPage
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ToUserResponse renders u with its tier as of now resolved.
func ToUserResponse(u *User, effective tier.Tier) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role(),
		Tier:             u.Tier,
		EffectiveTier:    effective,
		TierExpiresAt:    u.TierExpiresAt,
		PremiumBonusUsed: u.PremiumBonusUsed,
		VIPBonusUsed:     u.VIPBonusUsed,
		LastActiveAt:     u.LastActiveAt,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// TierCount is one row of the stored-tier breakdown. Stored tiers ignore
// expiry and admin elevation.
type TierCount struct {
	Tier   tier.Tier `db:"tier"`
	Total  int       `db:"total"`
	Admins int       `db:"admins"`
}

type Stats struct {
	Total        int            `json:"total"`
	Admins       int            `json:"admins"`
	StoredByTier map[string]int `json:"stored_by_tier"`
}
