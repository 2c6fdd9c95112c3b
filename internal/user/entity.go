// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/carterperez-dev/uznavaykin/internal/entitlement"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

type User struct {
	ID               string     `db:"id"`
	Username         string     `db:"username"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	Tier             tier.Tier  `db:"tier"`
	TierExpiresAt    *time.Time `db:"tier_expires_at"`
	PremiumBonusUsed int        `db:"premium_bonus_used"`
	VIPBonusUsed     int        `db:"vip_bonus_used"`
	IsAdmin          bool       `db:"is_admin"`
	LastActiveAt     *time.Time `db:"last_active_at"`
	TokenVersion     int        `db:"token_version"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

func (u *User) Entitlement() entitlement.Subject {
	return entitlement.Subject{
		Tier:      u.Tier,
		ExpiresAt: u.TierExpiresAt,
		IsAdmin:   u.IsAdmin,
	}
}

// Subscription is the group of columns a purchase rewrites together.
type Subscription struct {
	Tier             tier.Tier
	ExpiresAt        *time.Time
	PremiumBonusUsed int
	VIPBonusUsed     int
	// IsAdmin is read only; administrators sit outside the purchase states.
	IsAdmin bool
}

func (u *User) Subscription() Subscription {
	return Subscription{
		Tier:             u.Tier,
		ExpiresAt:        u.TierExpiresAt,
		PremiumBonusUsed: u.PremiumBonusUsed,
		VIPBonusUsed:     u.VIPBonusUsed,
		IsAdmin:          u.IsAdmin,
	}
}

func (u *User) applySubscription(s Subscription) {
	u.Tier = s.Tier
	u.TierExpiresAt = s.ExpiresAt
	u.PremiumBonusUsed = s.PremiumBonusUsed
	u.VIPBonusUsed = s.VIPBonusUsed
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
