// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/uznavaykin/internal/core"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

// Policy picks the limit for a request. A non-empty label is reported in
// the X-RateLimit-Tier header.
type Policy func(r *http.Request) (limit redis_rate.Limit, label string)

type RateLimitConfig struct {
	Limit   redis_rate.Limit
	Policy  Policy
	KeyFunc func(*http.Request) string
}

// RateLimiter enforces a GCRA budget in redis and degrades to an in-process
// token bucket per key while redis is unreachable.
type RateLimiter struct {
	remote *redis_rate.Limiter
	local  *localLimiter
	policy Policy
	key    func(*http.Request) string
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		remote: redis_rate.NewLimiter(rdb),
		local:  newLocalLimiter(),
		policy: cfg.Policy,
		key:    cfg.KeyFunc,
	}
	if rl.key == nil {
		rl.key = KeyByIP
	}
	if rl.policy == nil {
		fixed := cfg.Limit
		rl.policy = func(*http.Request) (redis_rate.Limit, string) {
			return fixed, ""
		}
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, label := rl.policy(r)
		res := rl.allow(r.Context(), rl.key(r), limit)

		if label != "" {
			w.Header().Set("X-RateLimit-Tier", label)
		}
		writeLimitHeaders(w.Header(), res)

		if res.Allowed == 0 {
			retry := max(int(res.RetryAfter.Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			core.JSONError(w, core.RateLimitedError(retry))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) *redis_rate.Result {
	res, err := rl.remote.Allow(ctx, key, limit)
	if err == nil {
		return res
	}

	slog.DebugContext(ctx, "redis rate limit unavailable, using local bucket",
		"key", key,
		"error", err,
	)
	return rl.local.allow(key, limit)
}

func writeLimitHeaders(h http.Header, res *redis_rate.Result) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(res.ResetAfter).Unix(), 10))
}

type TierConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

var DefaultTiers = map[tier.Tier]TierConfig{
	tier.Start:   {RequestsPerMinute: 60, BurstSize: 10},
	tier.VIP:     {RequestsPerMinute: 300, BurstSize: 50},
	tier.Premium: {RequestsPerMinute: 600, BurstSize: 100},
}

// TierLookup resolves the effective tier of an authenticated user.
type TierLookup func(ctx context.Context, userID string) (tier.Tier, error)

// TieredRateLimiter applies the budget of the caller's effective tier. It
// must run after authentication. Anonymous callers and failed lookups get
// the start budget.
func TieredRateLimiter(
	rdb *redis.Client,
	tiers map[tier.Tier]TierConfig,
	lookup TierLookup,
) func(http.Handler) http.Handler {
	policy := func(r *http.Request) (redis_rate.Limit, string) {
		current := tier.Start
		if userID := GetUserID(r.Context()); userID != "" {
			if t, err := lookup(r.Context(), userID); err == nil {
				current = t
			}
		}

		budget, ok := tiers[current]
		if !ok {
			current = tier.Start
			budget = tiers[tier.Start]
		}
		return PerMinute(budget.RequestsPerMinute, budget.BurstSize), current.String()
	}

	return NewRateLimiter(rdb, RateLimitConfig{
		Policy:  policy,
		KeyFunc: KeyByTier,
	}).Handler
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + clientIP(r)
}

func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "ratelimit:user:" + userID
	}
	return KeyByIP(r)
}

// KeyByTier keys the tiered budget apart from the global per-IP budget so
// a request passing both limiters is charged once against each.
func KeyByTier(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "ratelimit:tier:user:" + userID
	}
	return "ratelimit:tier:ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// KeyByUserAndEndpoint gives each user a separate budget per route shape.
func KeyByUserAndEndpoint(r *http.Request) string {
	return KeyByUser(r) + ":endpoint:" + normalizeEndpoint(r.URL.Path)
}

func normalizeEndpoint(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if isIdentifier(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isIdentifier(seg string) bool {
	if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
		return true
	}
	_, err := uuid.Parse(seg)
	return err == nil && len(seg) == 36
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return Every(time.Minute, rate, burst)
}

func PerHour(rate, burst int) redis_rate.Limit {
	return Every(time.Hour, rate, burst)
}

// Every spreads rate requests over an arbitrary period.
func Every(period time.Duration, rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: period,
	}
}

const (
	sweepInterval = 5 * time.Minute
	bucketTTL     = 10 * time.Minute
)

type bucket struct {
	limiter *rate.Limiter
	limit   redis_rate.Limit
	seen    time.Time
}

type localLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (l *localLimiter) allow(
	key string,
	limit redis_rate.Limit,
) *redis_rate.Result {
	now := time.Now()
	interval := limit.Period / time.Duration(max(limit.Rate, 1))

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > sweepInterval {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > bucketTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok || b.limit != limit {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(interval), limit.Burst),
			limit:   limit,
		}
		l.buckets[key] = b
	}
	b.seen = now

	res := &redis_rate.Result{
		Limit:      limit,
		RetryAfter: interval,
		ResetAfter: interval,
	}
	if b.limiter.AllowN(now, 1) {
		res.Allowed = 1
		res.RetryAfter = -1
	}
	res.Remaining = max(int(b.limiter.TokensAt(now)), 0)

	return res
}
