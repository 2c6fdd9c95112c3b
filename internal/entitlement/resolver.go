// AngelaMos | 2026
// resolver.go

// Package entitlement computes the tier a user actually holds at a given
// moment, after admin override and lazy expiry.
package entitlement

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

// Subject is the slice of a user record entitlement depends on.
type Subject struct {
	Tier      tier.Tier
	ExpiresAt *time.Time
	IsAdmin   bool
}

// EffectiveTier is a pure function of the snapshot and now. A stored tier
// past its expiry reads as start; the record itself is left untouched.
func EffectiveTier(s Subject, now time.Time) tier.Tier {
	if s.IsAdmin {
		return tier.Premium
	}

	if s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
		return tier.Start
	}

	return s.Tier
}

// IsLifetime reports a non-start grant with no expiry.
func IsLifetime(s Subject) bool {
	return s.ExpiresAt == nil && s.Tier != tier.Start
}

type Resolver struct {
	clock clockwork.Clock
}

func NewResolver(clock clockwork.Clock) *Resolver {
	return &Resolver{clock: clock}
}

func (r *Resolver) Resolve(s Subject) tier.Tier {
	return EffectiveTier(s, r.clock.Now())
}

// Anonymous is the tier of a viewer with no account.
func Anonymous() tier.Tier {
	return tier.Start
}
