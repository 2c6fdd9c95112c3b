// AngelaMos | 2026
// entity.go

package content

import (
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

// Item is one wiki entry. CategoryPath runs from the game down to the leaf
// category, e.g. {"Warhammer 40000", "Space Marines"}.
type Item struct {
	ID           string         `db:"id"`
	CategoryPath pq.StringArray `db:"category_path"`
	Title        string         `db:"title"`
	Summary      string         `db:"summary"`
	Body         string         `db:"body"`
	RequiredTier tier.Tier      `db:"required_tier"`
	Rating       float64        `db:"rating"`
	IsFeatured   bool           `db:"is_featured"`
	ViewCount    int64          `db:"view_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (i *Item) Category() string {
	return strings.Join(i.CategoryPath, " / ")
}
