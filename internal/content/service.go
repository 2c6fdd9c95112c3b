// AngelaMos | 2026
// service.go

package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/entitlement"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

const tracerName = "uznavaykin/content"

// TierSource resolves the effective tier of a registered user.
type TierSource interface {
	EffectiveTierByID(ctx context.Context, userID string) (tier.Tier, error)
}

type Service struct {
	repo             Repository
	tiers            TierSource
	countDeniedViews bool
}

func NewService(
	repo Repository,
	tiers TierSource,
	countDeniedViews bool,
) *Service {
	return &Service{
		repo:             repo,
		tiers:            tiers,
		countDeniedViews: countDeniedViews,
	}
}

// ViewerTier maps a possibly empty user id to the tier used for gating.
// Unknown accounts are treated as anonymous.
func (s *Service) ViewerTier(
	ctx context.Context,
	userID string,
) (tier.Tier, error) {
	if userID == "" {
		return entitlement.Anonymous(), nil
	}

	t, err := s.tiers.EffectiveTierByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return entitlement.Anonymous(), nil
	}
	if err != nil {
		return tier.Start, fmt.Errorf("resolve viewer tier: %w", err)
	}

	return t, nil
}

// ViewDetail gates one item for viewer and counts the view. Granted views
// always count; denied views count when the service was built with
// countDeniedViews.
func (s *Service) ViewDetail(
	ctx context.Context,
	id string,
	viewer tier.Tier,
) (item *Item, decision Decision, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "content.ViewDetail",
		attribute.String("content.id", id),
		attribute.String("viewer.tier", viewer.String()),
	)
	defer func() { core.EndSpan(span, err) }()

	if _, parseErr := uuid.Parse(id); parseErr != nil {
		return nil, Decision{}, fmt.Errorf("view content: %w", core.ErrNotFound)
	}

	if s.countDeniedViews {
		item, err = s.repo.GetAndCountView(ctx, id)
		if err != nil {
			return nil, Decision{}, err
		}
		decision = ResolveView(item, viewer)
	} else {
		item, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, Decision{}, err
		}

		decision = ResolveView(item, viewer)
		if decision.Allowed() {
			count, incErr := s.repo.IncrementViewCount(ctx, id)
			if incErr != nil {
				return nil, Decision{}, incErr
			}
			item.ViewCount = count
		}
	}

	span.SetAttributes(
		attribute.Bool("content.granted", decision.Allowed()),
		attribute.String("content.required_tier", item.RequiredTier.String()),
	)

	return item, decision, nil
}

func (s *Service) List(
	ctx context.Context,
	params ListParams,
	viewer tier.Tier,
) ([]ItemSummary, int, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "content.List",
		attribute.String("viewer.tier", viewer.String()),
		attribute.String("content.query", params.Query),
	)
	items, total, err := s.repo.List(ctx, params)
	core.EndSpan(span, err)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]ItemSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, ToItemSummary(&items[i], viewer))
	}

	return summaries, total, nil
}

func (s *Service) Search(
	ctx context.Context,
	params ListParams,
	viewer tier.Tier,
) ([]ItemSummary, int, error) {
	params.Query = strings.TrimSpace(params.Query)
	if params.Query == "" {
		return nil, 0, fmt.Errorf("search content: %w", core.ErrInvalidInput)
	}
	return s.List(ctx, params, viewer)
}

func (s *Service) Create(
	ctx context.Context,
	req CreateItemRequest,
) (*Item, error) {
	required, err := tier.Parse(req.RequiredTier)
	if err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}

	item := &Item{
		ID:           uuid.New().String(),
		CategoryPath: trimPath(req.CategoryPath),
		Title:        strings.TrimSpace(req.Title),
		Summary:      strings.TrimSpace(req.Summary),
		Body:         req.Body,
		RequiredTier: required,
		Rating:       req.Rating,
		IsFeatured:   req.IsFeatured,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "content created",
		"content_id", item.ID,
		"required_tier", item.RequiredTier.String(),
	)
	return item, nil
}

func (s *Service) Update(
	ctx context.Context,
	id string,
	req UpdateItemRequest,
) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("update content: %w", core.ErrNotFound)
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.RequiredTier != nil {
		required, parseErr := tier.Parse(*req.RequiredTier)
		if parseErr != nil {
			return nil, fmt.Errorf("update content: %w", parseErr)
		}
		item.RequiredTier = required
	}
	if req.CategoryPath != nil {
		item.CategoryPath = trimPath(req.CategoryPath)
	}
	if req.Title != nil {
		item.Title = strings.TrimSpace(*req.Title)
	}
	if req.Summary != nil {
		item.Summary = strings.TrimSpace(*req.Summary)
	}
	if req.Body != nil {
		item.Body = *req.Body
	}
	if req.Rating != nil {
		item.Rating = *req.Rating
	}
	if req.IsFeatured != nil {
		item.IsFeatured = *req.IsFeatured
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

type Stats struct {
	ItemsByTier map[string]int `json:"items_by_tier"`
	TotalViews  int64          `json:"total_views"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	byTier, err := s.repo.CountByTier(ctx)
	if err != nil {
		return nil, err
	}

	views, err := s.repo.TotalViews(ctx)
	if err != nil {
		return nil, err
	}

	out := &Stats{
		ItemsByTier: make(map[string]int, len(byTier)),
		TotalViews:  views,
	}
	for t, n := range byTier {
		out.ItemsByTier[t.String()] = n
	}

	return out, nil
}

func trimPath(path []string) []string {
	out := make([]string, 0, len(path))
	for _, p := range path {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
