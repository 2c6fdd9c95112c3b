// AngelaMos | 2026
// dto.go

package subscription

import (
	"time"

	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

type StatusResponse struct {
	Tier                  tier.Tier  `json:"tier"`
	EffectiveTier         tier.Tier  `json:"effective_tier"`
	ExpiresAt             *time.Time `json:"expires_at"`
	Lifetime              bool       `json:"lifetime"`
	PremiumBonusUsed      int        `json:"premium_bonus_used"`
	VIPBonusUsed          int        `json:"vip_bonus_used"`
	PremiumBonusRemaining int        `json:"premium_bonus_remaining"`
	VIPBonusRemaining     int        `json:"vip_bonus_remaining"`
}

type PlansResponse struct {
	Plans []Plan `json:"plans"`
}
