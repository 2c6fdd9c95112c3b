// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/uznavaykin/internal/core"
)

// SubscriptionFunc maps the current subscription columns to their next
// values. Returning an error aborts the update and leaves the row unchanged.
type SubscriptionFunc func(current Subscription) (Subscription, error)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	UpdateSubscription(
		ctx context.Context,
		id string,
		fn SubscriptionFunc,
	) (*User, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
	CountByTier(ctx context.Context) ([]TierCount, error)
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
}

const userColumns = `
	id, username, email, password_hash, tier, tier_expires_at,
	premium_bonus_used, vip_bonus_used, is_admin, last_active_at,
	token_version, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, tier, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at, token_version`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Tier,
		user.IsAdmin,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getBy(ctx, r.db, "id", id, false)
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	return r.getBy(ctx, r.db, "email", email, false)
}

func (r *repository) GetByUsername(
	ctx context.Context,
	username string,
) (*User, error) {
	return r.getBy(ctx, r.db, "username", username, false)
}

func (r *repository) getBy(
	ctx context.Context,
	q sqlx.QueryerContext,
	column, value string,
	forUpdate bool,
) (*User, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM users WHERE %s = $1",
		userColumns,
		column,
	)
	if forUpdate {
		query += " FOR UPDATE"
	}

	var user User
	err := sqlx.GetContext(ctx, q, &user, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by %s: %w", column, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}

	return &user, nil
}

func (r *repository) UpdateProfile(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET username = $2, email = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.Username,
		user.Email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("update user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

func (r *repository) SetAdmin(
	ctx context.Context,
	id string,
	isAdmin bool,
) error {
	return r.execOne(ctx, "set admin", `
		UPDATE users
		SET is_admin = $2, token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1`, id, isAdmin)
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	return r.execOne(ctx, "update password", `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`, id, passwordHash)
}

func (r *repository) IncrementTokenVersion(
	ctx context.Context,
	id string,
) error {
	return r.execOne(ctx, "increment token version", `
		UPDATE users
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1`, id)
}

// UpdateSubscription locks the user row, hands its subscription columns to
// fn and writes the result back in a single statement inside the same
// transaction. Concurrent purchases for one user serialize on the lock.
func (r *repository) UpdateSubscription(
	ctx context.Context,
	id string,
	fn SubscriptionFunc,
) (*User, error) {
	var updated *User

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		user, err := r.getBy(ctx, tx, "id", id, true)
		if err != nil {
			return err
		}

		next, err := fn(user.Subscription())
		if err != nil {
			return err
		}

		query := `
			UPDATE users
			SET tier = $2, tier_expires_at = $3,
			    premium_bonus_used = $4, vip_bonus_used = $5,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`

		if err := tx.GetContext(ctx, &user.UpdatedAt, query,
			id,
			next.Tier,
			next.ExpiresAt,
			next.PremiumBonusUsed,
			next.VIPBonusUsed,
		); err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}

		user.applySubscription(next)
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *repository) TouchLastActive(
	ctx context.Context,
	id string,
	at time.Time,
) error {
	return r.execOne(ctx, "touch last active", `
		UPDATE users
		SET last_active_at = $2
		WHERE id = $1`, id, at)
}

func (r *repository) CountActiveSince(
	ctx context.Context,
	since time.Time,
) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE last_active_at >= $1`

	var count int
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}

	return count, nil
}

func (r *repository) CountByTier(ctx context.Context) ([]TierCount, error) {
	query := `
		SELECT tier, COUNT(*) AS total, COUNT(*) FILTER (WHERE is_admin) AS admins
		FROM users
		GROUP BY tier
		ORDER BY tier`

	var counts []TierCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count users by tier: %w", err)
	}

	return counts, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR username ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Tier != "" {
		conditions = append(conditions, fmt.Sprintf("tier = $%d", argIdx))
		args = append(args, params.Tier)
		argIdx++
	}

	if params.AdminsOnly {
		conditions = append(conditions, "is_admin")
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM users WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}
