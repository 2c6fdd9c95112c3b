// AngelaMos | 2026
// cleanup.go

package jobs

import (
	"context"
	"log/slog"
)

type TokenPurger interface {
	DeleteExpiredTokens(ctx context.Context) (int64, error)
}

// TokenCleanup removes refresh tokens that expired more than a day ago.
func TokenCleanup(purger TokenPurger) JobFunc {
	return func(ctx context.Context) error {
		n, err := purger.DeleteExpiredTokens(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.InfoContext(ctx, "expired refresh tokens deleted", "count", n)
		}
		return nil
	}
}
