// AngelaMos | 2026
// gate.go

package content

import (
	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

type Outcome uint8

const (
	OutcomeFull Outcome = iota + 1
	OutcomeDenied
)

type Reason string

const ReasonInsufficientTier Reason = "insufficient_tier"

// Decision is the result of gating one item for one viewer. Body is only
// populated when Outcome is OutcomeFull.
type Decision struct {
	Outcome  Outcome
	Body     string
	Reason   Reason
	Required tier.Tier
	Viewer   tier.Tier
}

func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeFull
}

// ResolveView grants the body iff the viewer's tier is at least the item's
// required tier. It has no side effects.
func ResolveView(item *Item, viewer tier.Tier) Decision {
	if viewer.AtLeast(item.RequiredTier) {
		return Decision{
			Outcome:  OutcomeFull,
			Body:     item.Body,
			Required: item.RequiredTier,
			Viewer:   viewer,
		}
	}

	return Decision{
		Outcome:  OutcomeDenied,
		Reason:   ReasonInsufficientTier,
		Required: item.RequiredTier,
		Viewer:   viewer,
	}
}
