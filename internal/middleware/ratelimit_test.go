// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestTieredRateLimiterUsesEffectiveTierBudget(t *testing.T) {
	tiers := map[tier.Tier]TierConfig{
		tier.Start:   {RequestsPerMinute: 60, BurstSize: 1},
		tier.Premium: {RequestsPerMinute: 60, BurstSize: 3},
	}
	lookup := func(_ context.Context, userID string) (tier.Tier, error) {
		if userID == "rich" {
			return tier.Premium, nil
		}
		return tier.Start, errors.New("lookup failed")
	}

	h := TieredRateLimiter(unreachableRedis(t), tiers, lookup)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	send := func(userID string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		if userID != "" {
			r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	for i := 0; i < 3; i++ {
		rec := send("rich")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "premium", rec.Header().Get("X-RateLimit-Tier"))
	}
	assert.Equal(t, http.StatusTooManyRequests, send("rich").Code)

	rec := send("")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "start", rec.Header().Get("X-RateLimit-Tier"))
	assert.Equal(t, http.StatusTooManyRequests, send("").Code)

	assert.Equal(t, http.StatusOK, send("broke").Code)
	assert.Equal(t, http.StatusTooManyRequests, send("broke").Code)
}

func TestKeyByIPPrefersForwardedHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "ratelimit:ip:192.0.2.1", KeyByIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "ratelimit:ip:198.51.100.7", KeyByIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 203.0.113.10")
	assert.Equal(t, "ratelimit:ip:203.0.113.10", KeyByIP(r))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(
		t,
		"/v1/content/{id}",
		normalizeEndpoint("/v1/content/42"),
	)
	assert.Equal(
		t,
		"/v1/admin/users/{id}/admin",
		normalizeEndpoint("/v1/admin/users/0f8fad5b-d9cb-469f-a165-70867728950e/admin"),
	)
}

func TestPurchaseLimiterKeysByUserAndEndpoint(t *testing.T) {
	limiter := NewRateLimiter(unreachableRedis(t), RateLimitConfig{
		Limit:   PerHour(1, 1),
		KeyFunc: KeyByUserAndEndpoint,
	}).Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	purchase := func(userID, path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID))
		rec := httptest.NewRecorder()
		limiter.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, purchase("u1", "/v1/subscriptions/lifetime/vip"))
	assert.Equal(t, http.StatusTooManyRequests, purchase("u1", "/v1/subscriptions/lifetime/vip"))
	assert.Equal(t, http.StatusOK, purchase("u1", "/v1/subscriptions/timed/vip"))
	assert.Equal(t, http.StatusOK, purchase("u2", "/v1/subscriptions/lifetime/vip"))
}

func TestRateLimitedResponseEnvelope(t *testing.T) {
	h := NewRateLimiter(unreachableRedis(t), RateLimitConfig{
		Limit: PerMinute(1, 1),
	}).Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.1.1.1:80"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	first := send()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Empty(t, first.Header().Get("X-RateLimit-Tier"))

	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"RATE_LIMITED"`)
}

func TestGlobalAndTieredLimitersKeepSeparateBudgets(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	global := NewRateLimiter(rdb, RateLimitConfig{
		Limit: PerMinute(1000, 100),
	}).Handler
	tiered := TieredRateLimiter(
		rdb,
		map[tier.Tier]TierConfig{
			tier.Start: {RequestsPerMinute: 1, BurstSize: 10},
		},
		func(context.Context, string) (tier.Tier, error) {
			return tier.Start, nil
		},
	)

	h := global(tiered(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	allowed := 0
	for i := 0; i < 40; i++ {
		r := httptest.NewRequest(http.MethodGet, "/v1/content", nil)
		r.RemoteAddr = "10.2.2.2:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}

	assert.Equal(t, 10, allowed)
}

func TestKeyByTierIsDistinctFromGlobalKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "ratelimit:tier:ip:192.0.2.1", KeyByTier(r))
	assert.NotEqual(t, KeyByIP(r), KeyByTier(r))

	r = r.WithContext(context.WithValue(r.Context(), UserIDKey, "u1"))
	assert.Equal(t, "ratelimit:tier:user:u1", KeyByTier(r))
}
