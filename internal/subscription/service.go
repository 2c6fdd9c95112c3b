// AngelaMos | 2026
// service.go

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/entitlement"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
	"github.com/carterperez-dev/uznavaykin/internal/user"
)

const tracerName = "uznavaykin/subscription"

type Service struct {
	users     user.Repository
	plans     PlanRepository
	ledger    *Ledger
	clock     clockwork.Clock
	publisher Publisher
}

type ServiceDeps struct {
	Users     user.Repository
	Plans     PlanRepository
	Ledger    *Ledger
	Clock     clockwork.Clock
	Publisher Publisher
}

func NewService(deps ServiceDeps) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	if deps.Ledger == nil {
		deps.Ledger = NewLedger(DefaultCaps)
	}
	return &Service{
		users:     deps.Users,
		plans:     deps.Plans,
		ledger:    deps.Ledger,
		clock:     deps.Clock,
		publisher: deps.Publisher,
	}
}

func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.plans.List(ctx)
}

// PurchaseTimed buys a plan for its configured duration, replacing any
// current grant.
func (s *Service) PurchaseTimed(
	ctx context.Context,
	userID, tierName string,
) (u *user.User, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "subscription.PurchaseTimed",
		attribute.String("user.id", userID),
		attribute.String("subscription.tier", tierName),
	)
	defer func() { core.EndSpan(span, err) }()

	requested, err := parsePurchasable(tierName)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.Get(ctx, requested)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("purchase %s: %w", requested, ErrUnknownTier)
	}
	if err != nil {
		return nil, err
	}

	u, err = s.users.UpdateSubscription(ctx, userID,
		func(current user.Subscription) (user.Subscription, error) {
			return s.ledger.PurchaseTimed(current, plan, s.clock.Now())
		},
	)
	if err != nil {
		return nil, err
	}

	s.afterPurchase(ctx, u, KindTimed, plan.Price)
	return u, nil
}

// PurchaseLifetimeBonus spends one bonus slot of the requested tier for a
// grant that never expires.
func (s *Service) PurchaseLifetimeBonus(
	ctx context.Context,
	userID, tierName string,
) (u *user.User, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "subscription.PurchaseLifetimeBonus",
		attribute.String("user.id", userID),
		attribute.String("subscription.tier", tierName),
	)
	defer func() { core.EndSpan(span, err) }()

	requested, err := parsePurchasable(tierName)
	if err != nil {
		return nil, err
	}

	u, err = s.users.UpdateSubscription(ctx, userID,
		func(current user.Subscription) (user.Subscription, error) {
			return s.ledger.PurchaseLifetimeBonus(current, requested)
		},
	)
	if err != nil {
		return nil, err
	}

	s.afterPurchase(ctx, u, KindLifetimeBonus, 0)
	return u, nil
}

func (s *Service) Status(
	ctx context.Context,
	userID string,
) (*StatusResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.StatusOf(u), nil
}

func (s *Service) StatusOf(u *user.User) *StatusResponse {
	state := u.Subscription()
	premiumLeft, vipLeft := s.ledger.Remaining(state)

	return &StatusResponse{
		Tier:                  u.Tier,
		EffectiveTier:         entitlement.EffectiveTier(u.Entitlement(), s.clock.Now()),
		ExpiresAt:             u.TierExpiresAt,
		Lifetime:              entitlement.IsLifetime(u.Entitlement()),
		PremiumBonusUsed:      u.PremiumBonusUsed,
		VIPBonusUsed:          u.VIPBonusUsed,
		PremiumBonusRemaining: premiumLeft,
		VIPBonusRemaining:     vipLeft,
	}
}

func (s *Service) afterPurchase(
	ctx context.Context,
	u *user.User,
	kind PurchaseKind,
	price int,
) {
	now := s.clock.Now()

	slog.InfoContext(ctx, "purchase applied",
		"user_id", u.ID,
		"kind", string(kind),
		"tier", u.Tier.String(),
		"expires_at", u.TierExpiresAt,
	)

	event := PurchaseEvent{
		EventID:          uuid.New().String(),
		UserID:           u.ID,
		Kind:             kind,
		Tier:             u.Tier,
		ExpiresAt:        u.TierExpiresAt,
		PremiumBonusUsed: u.PremiumBonusUsed,
		VIPBonusUsed:     u.VIPBonusUsed,
		Price:            price,
		OccurredAt:       now,
	}

	if err := s.publisher.PublishPurchase(ctx, event); err != nil {
		slog.WarnContext(ctx, "event publish failed",
			"user_id", u.ID,
			"event_id", event.EventID,
			"error", err,
		)
	}
}

func parsePurchasable(name string) (tier.Tier, error) {
	t, err := tier.Parse(name)
	if err != nil || !purchasable(t) {
		return tier.Start, fmt.Errorf("purchase %q: %w", name, ErrUnknownTier)
	}
	return t, nil
}
