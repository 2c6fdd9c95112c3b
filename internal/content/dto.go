// AngelaMos | 2026
// dto.go

package content

import (
	"math"
	"time"

	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

type CreateItemRequest struct {
	CategoryPath []string `json:"category_path" validate:"required,min=1,max=5,dive,required,max=120"`
	Title        string   `json:"title"         validate:"required,max=200"`
	Summary      string   `json:"summary"       validate:"max=2000"`
	Body         string   `json:"body"          validate:"required"`
	RequiredTier string   `json:"required_tier" validate:"required"`
	Rating       float64  `json:"rating"        validate:"gte=0,lte=5"`
	IsFeatured   bool     `json:"is_featured"`
}

type UpdateItemRequest struct {
	CategoryPath []string `json:"category_path,omitempty" validate:"omitempty,min=1,max=5,dive,required,max=120"`
	Title        *string  `json:"title,omitempty"         validate:"omitempty,min=1,max=200"`
	Summary      *string  `json:"summary,omitempty"       validate:"omitempty,max=2000"`
	Body         *string  `json:"body,omitempty"          validate:"omitempty,min=1"`
	RequiredTier *string  `json:"required_tier,omitempty"`
	Rating       *float64 `json:"rating,omitempty"        validate:"omitempty,gte=0,lte=5"`
	IsFeatured   *bool    `json:"is_featured,omitempty"`
}

type ListParams struct {
	Page     int
	PageSize int
	Category []string
	Query    string
}

func (p *ListParams) Normalize() {
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

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ItemSummary is the listing form of an item. It never carries the body.
type ItemSummary struct {
	ID           string    `json:"id"`
	CategoryPath []string  `json:"category_path"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	RequiredTier tier.Tier `json:"required_tier"`
	Rating       float64   `json:"rating"`
	IsFeatured   bool      `json:"is_featured"`
	ViewCount    int64     `json:"view_count"`
	Locked       bool      `json:"locked"`
	CreatedAt    time.Time `json:"created_at"`
}

type ItemDetail struct {
	ItemSummary
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeniedDetails accompanies an INSUFFICIENT_TIER error so clients can show
// the teaser and an upgrade prompt.
type DeniedDetails struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	CategoryPath []string  `json:"category_path"`
	RequiredTier tier.Tier `json:"required_tier"`
	ViewerTier   tier.Tier `json:"viewer_tier"`
}

func ToItemSummary(item *Item, viewer tier.Tier) ItemSummary {
	return ItemSummary{
		ID:           item.ID,
		CategoryPath: []string(item.CategoryPath),
		Title:        item.Title,
		Summary:      item.Summary,
		RequiredTier: item.RequiredTier,
		Rating:       item.Rating,
		IsFeatured:   item.IsFeatured,
		ViewCount:    item.ViewCount,
		Locked:       !ResolveView(item, viewer).Allowed(),
		CreatedAt:    item.CreatedAt,
	}
}

// ToItemDetail renders a granted view. The body comes from the decision,
// never from the item directly.
func ToItemDetail(item *Item, d Decision) ItemDetail {
	return ItemDetail{
		ItemSummary: ToItemSummary(item, d.Viewer),
		Body:        d.Body,
		UpdatedAt:   item.UpdatedAt,
	}
}

func ToDeniedDetails(item *Item, d Decision) DeniedDetails {
	return DeniedDetails{
		ID:           item.ID,
		Title:        item.Title,
		Summary:      item.Summary,
		CategoryPath: []string(item.CategoryPath),
		RequiredTier: d.Required,
		ViewerTier:   d.Viewer,
	}
}
