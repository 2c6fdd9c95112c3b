// AngelaMos | 2026
// ledger.go

// Package subscription applies purchases to a user's subscription state.
// The ledger functions are pure: they take a snapshot and return the next
// one, leaving persistence and locking to Service.
package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/uznavaykin/internal/tier"
	"github.com/carterperez-dev/uznavaykin/internal/user"
)

var (
	ErrUnknownTier    = errors.New("unknown or unpurchasable tier")
	ErrBonusExhausted = errors.New("lifetime bonus exhausted")
	ErrAdminPinned    = errors.New("administrators cannot purchase tiers")
)

// Caps bounds how many lifetime bonus grants each tier allows per user.
type Caps struct {
	Premium int
	VIP     int
}

var DefaultCaps = Caps{Premium: 1, VIP: 3}

type Ledger struct {
	caps Caps
}

func NewLedger(caps Caps) *Ledger {
	return &Ledger{caps: caps}
}

func purchasable(t tier.Tier) bool {
	return t == tier.VIP || t == tier.Premium
}

// PurchaseTimed replaces the current grant with plan's tier for plan's
// duration counted from now. Remaining time on an earlier grant is
// discarded, never added. Bonus counters are untouched.
func (l *Ledger) PurchaseTimed(
	state user.Subscription,
	plan *Plan,
	now time.Time,
) (user.Subscription, error) {
	if state.IsAdmin {
		return state, ErrAdminPinned
	}
	if plan == nil || !purchasable(plan.Name) {
		return state, ErrUnknownTier
	}

	next := state
	next.Tier = plan.Name
	next.ExpiresAt = nil

	if d, ok := plan.Duration(); ok {
		expires := now.Add(d)
		next.ExpiresAt = &expires
	}

	return next, nil
}

// PurchaseLifetimeBonus grants requested with no expiry and consumes one
// bonus slot of that tier.
func (l *Ledger) PurchaseLifetimeBonus(
	state user.Subscription,
	requested tier.Tier,
) (user.Subscription, error) {
	if state.IsAdmin {
		return state, ErrAdminPinned
	}
	if !purchasable(requested) {
		return state, ErrUnknownTier
	}

	next := state
	switch requested {
	case tier.Premium:
		if state.PremiumBonusUsed >= l.caps.Premium {
			return state, fmt.Errorf("%s: %w", requested, ErrBonusExhausted)
		}
		next.PremiumBonusUsed++
	case tier.VIP:
		if state.VIPBonusUsed >= l.caps.VIP {
			return state, fmt.Errorf("%s: %w", requested, ErrBonusExhausted)
		}
		next.VIPBonusUsed++
	}

	next.Tier = requested
	next.ExpiresAt = nil

	return next, nil
}

// Remaining reports the unused bonus slots per tier.
func (l *Ledger) Remaining(state user.Subscription) (premium, vip int) {
	return max(l.caps.Premium-state.PremiumBonusUsed, 0),
		max(l.caps.VIP-state.VIPBonusUsed, 0)
}
