// AngelaMos | 2026
// event.go

package subscription

import (
	"context"
	"time"

	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

type PurchaseKind string

const (
	KindTimed         PurchaseKind = "timed"
	KindLifetimeBonus PurchaseKind = "lifetime_bonus"
)

// PurchaseEvent describes a committed purchase.
type PurchaseEvent struct {
	EventID          string       `json:"event_id"`
	UserID           string       `json:"user_id"`
	Kind             PurchaseKind `json:"kind"`
	Tier             tier.Tier    `json:"tier"`
	ExpiresAt        *time.Time   `json:"expires_at"`
	PremiumBonusUsed int          `json:"premium_bonus_used"`
	VIPBonusUsed     int          `json:"vip_bonus_used"`
	Price            int          `json:"price"`
	OccurredAt       time.Time    `json:"occurred_at"`
}

type Publisher interface {
	PublishPurchase(ctx context.Context, event PurchaseEvent) error
}

type nopPublisher struct{}

func (nopPublisher) PublishPurchase(context.Context, PurchaseEvent) error {
	return nil
}
