// AngelaMos | 2026
// plan.go

package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

// Plan is the catalog entry for one tier. A nil DurationDays means the
// grant never expires.
type Plan struct {
	Name            tier.Tier `db:"name"            json:"name"`
	Price           int       `db:"price"           json:"price"`
	DurationDays    *int      `db:"duration_days"   json:"duration_days"`
	Features        string    `db:"features"        json:"features"`
	IsLifetimeBonus bool      `db:"is_lifetime_bonus" json:"is_lifetime_bonus"`
}

func (p *Plan) Duration() (time.Duration, bool) {
	if p.DurationDays == nil {
		return 0, false
	}
	return time.Duration(*p.DurationDays) * 24 * time.Hour, true
}

type PlanRepository interface {
	List(ctx context.Context) ([]Plan, error)
	Get(ctx context.Context, name tier.Tier) (*Plan, error)
}

const planColumns = `name, price, duration_days, features, is_lifetime_bonus`

type planRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) List(ctx context.Context) ([]Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM subscription_plans
		ORDER BY price, name`

	var plans []Plan
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	return plans, nil
}

func (r *planRepository) Get(
	ctx context.Context,
	name tier.Tier,
) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE name = $1`

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan %s: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", name, err)
	}

	return &plan, nil
}
