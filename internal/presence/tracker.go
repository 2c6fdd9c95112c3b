// AngelaMos | 2026
// tracker.go

package presence

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/uznavaykin/internal/config"
	"github.com/carterperez-dev/uznavaykin/internal/middleware"
)

const touchKeyPrefix = "presence:touch:"

// Store persists last-activity timestamps.
type Store interface {
	TouchLastActive(ctx context.Context, userID string, at time.Time) error
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
}

// Tracker records user activity. Database writes are debounced through a
// redis key per user so a busy client costs one UPDATE per interval.
type Tracker struct {
	rdb      *redis.Client
	store    Store
	clock    clockwork.Clock
	window   time.Duration
	interval time.Duration
}

func NewTracker(
	rdb *redis.Client,
	store Store,
	clock clockwork.Clock,
	cfg config.PresenceConfig,
) *Tracker {
	return &Tracker{
		rdb:      rdb,
		store:    store,
		clock:    clock,
		window:   cfg.OnlineWindow,
		interval: cfg.TouchInterval,
	}
}

// Touch marks userID active now. It reports whether the database was
// written.
func (t *Tracker) Touch(ctx context.Context, userID string) (bool, error) {
	acquired, err := t.rdb.SetNX(ctx, touchKeyPrefix+userID, 1, t.interval).Result()
	if err != nil {
		return false, fmt.Errorf("presence debounce: %w", err)
	}
	if !acquired {
		return false, nil
	}

	if err := t.store.TouchLastActive(ctx, userID, t.clock.Now()); err != nil {
		return false, fmt.Errorf("presence touch: %w", err)
	}

	return true, nil
}

// CountOnline counts users active within the configured window.
func (t *Tracker) CountOnline(ctx context.Context) (int, error) {
	return t.store.CountActiveSince(ctx, t.clock.Now().Add(-t.window))
}

// Middleware touches the authenticated user, if any. It must run after
// authentication. Failures are logged and never block the request.
func (t *Tracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := middleware.GetUserID(r.Context()); userID != "" {
			if _, err := t.Touch(r.Context(), userID); err != nil {
				slog.WarnContext(r.Context(), "presence touch failed",
					"user_id", userID,
					"error", err,
				)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap composes an authentication middleware with presence tracking.
func (t *Tracker) Wrap(
	auth func(http.Handler) http.Handler,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return auth(t.Middleware(next))
	}
}
