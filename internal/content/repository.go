// AngelaMos | 2026
// repository.go

package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

type Repository interface {
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	IncrementViewCount(ctx context.Context, id string) (int64, error)
	GetAndCountView(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, params ListParams) ([]Item, int, error)
	CountByTier(ctx context.Context) (map[tier.Tier]int, error)
	TotalViews(ctx context.Context) (int64, error)
}

const itemColumns = `
	id, category_path, title, summary, body, required_tier, rating,
	is_featured, view_count, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO content_items (
			id, category_path, title, summary, body, required_tier,
			rating, is_featured
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING view_count, created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		item.ID,
		item.CategoryPath,
		item.Title,
		item.Summary,
		item.Body,
		item.RequiredTier,
		item.Rating,
		item.IsFeatured,
	)
	if err := row.Scan(&item.ViewCount, &item.CreatedAt, &item.UpdatedAt); err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create content: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create content: %w", err)
	}

	return nil
}

func (r *repository) Update(ctx context.Context, item *Item) error {
	query := `
		UPDATE content_items
		SET category_path = $2, title = $3, summary = $4, body = $5,
		    required_tier = $6, rating = $7, is_featured = $8,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING view_count, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		item.ID,
		item.CategoryPath,
		item.Title,
		item.Summary,
		item.Body,
		item.RequiredTier,
		item.Rating,
		item.IsFeatured,
	)
	err := row.Scan(&item.ViewCount, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update content: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Item, error) {
	query := "SELECT " + itemColumns + " FROM content_items WHERE id = $1"

	var item Item
	err := r.db.GetContext(ctx, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get content: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}

	return &item, nil
}

// IncrementViewCount bumps the counter in the database so concurrent views
// never lose updates, and returns the new value.
func (r *repository) IncrementViewCount(
	ctx context.Context,
	id string,
) (int64, error) {
	query := `
		UPDATE content_items
		SET view_count = view_count + 1
		WHERE id = $1
		RETURNING view_count`

	var count int64
	err := r.db.GetContext(ctx, &count, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("increment view count: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment view count: %w", err)
	}

	return count, nil
}

// GetAndCountView increments the counter and loads the item in a single
// statement.
func (r *repository) GetAndCountView(
	ctx context.Context,
	id string,
) (*Item, error) {
	query := `
		UPDATE content_items
		SET view_count = view_count + 1
		WHERE id = $1
		RETURNING` + itemColumns

	var item Item
	err := r.db.GetContext(ctx, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("count view: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("count view: %w", err)
	}

	return &item, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Item, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if len(params.Category) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"category_path[1:cardinality($%d::text[])] = $%d::text[]",
			argIdx, argIdx))
		args = append(args, pq.StringArray(params.Category))
		argIdx++
	}

	if params.Query != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(title ILIKE $%d OR summary ILIKE $%d OR array_to_string(category_path, ' ') ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+core.EscapeLike(params.Query)+"%")
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM content_items WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count content: %w", err)
	}

	// featured entries first, then best rated, then newest
	query := fmt.Sprintf(`
		SELECT %s
		FROM content_items
		WHERE %s
		ORDER BY is_featured DESC, rating DESC, created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		itemColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var items []Item
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list content: %w", err)
	}

	return items, total, nil
}

func (r *repository) CountByTier(ctx context.Context) (map[tier.Tier]int, error) {
	query := `
		SELECT required_tier, COUNT(*) AS count
		FROM content_items
		GROUP BY required_tier`

	var rows []struct {
		Tier  tier.Tier `db:"required_tier"`
		Count int       `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count content by tier: %w", err)
	}

	counts := make(map[tier.Tier]int, len(tier.All()))
	for _, t := range tier.All() {
		counts[t] = 0
	}
	for _, row := range rows {
		counts[row.Tier] = row.Count
	}

	return counts, nil
}

func (r *repository) TotalViews(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(view_count), 0) FROM content_items`
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("sum view counts: %w", err)
	}
	return total, nil
}
