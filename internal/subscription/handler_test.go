// AngelaMos | 2026
// handler_test.go

package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/uznavaykin/internal/middleware"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
	"github.com/carterperez-dev/uznavaykin/internal/user"
)

func routerFor(f *fixture, userID string) http.Handler {
	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}, nil)
	return r
}

func do(t *testing.T, h http.Handler, method, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHandlerErrorMapping(t *testing.T) {
	f := newFixture(&user.User{ID: "u1", VIPBonusUsed: 3})
	h := routerFor(f, "u1")

	code, body := do(t, h, http.MethodPost, "/subscriptions/timed/gold")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "UNKNOWN_TIER", errorCode(body))

	code, body = do(t, h, http.MethodPost, "/subscriptions/lifetime/vip")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "BONUS_EXHAUSTED", errorCode(body))

	admin := routerFor(newFixture(&user.User{ID: "a1", IsAdmin: true}), "a1")
	code, body = do(t, admin, http.MethodPost, "/subscriptions/lifetime/premium")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ADMIN_PINNED", errorCode(body))
}

func TestHandlerPurchaseAndStatus(t *testing.T) {
	f := newFixture(&user.User{ID: "u1"})
	h := routerFor(f, "u1")

	code, body := do(t, h, http.MethodPost, "/subscriptions/lifetime/premium")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "premium", data["effective_tier"])
	assert.Equal(t, true, data["lifetime"])

	code, body = do(t, h, http.MethodGet, "/subscriptions/me")
	require.Equal(t, http.StatusOK, code)
	data = body["data"].(map[string]any)
	assert.InDelta(t, 1, data["premium_bonus_used"], 0)
}

func TestHandlerListPlans(t *testing.T) {
	f := newFixture()
	code, body := do(t, routerFor(f, ""), http.MethodGet, "/plans")
	require.Equal(t, http.StatusOK, code)

	plans := body["data"].(map[string]any)["plans"].([]any)
	require.Len(t, plans, 3)
	first := plans[0].(map[string]any)
	assert.Equal(t, tier.Start.String(), first["name"])
}
