// AngelaMos | 2026
// handler_test.go

package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/uznavaykin/internal/middleware"
	"github.com/carterperez-dev/uznavaykin/internal/tier"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// asUser stands in for OptionalAuth by placing a user id on the context.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != "" {
				r = r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func serve(
	t *testing.T,
	svc *Service,
	userID, method, path, body string,
) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, asUser(userID))
	NewHandler(svc).RegisterAdminRoutes(r, asUser(userID), func(next http.Handler) http.Handler {
		return next
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestGetDeniedReturnsInsufficientTier(t *testing.T) {
	item := newItem("Stormboyz", tier.Premium)
	svc := NewService(newMemoryRepo(item), staticTiers{"u1": tier.VIP}, true)

	rec, env := serve(t, svc, "u1", http.MethodGet, "/content/"+item.ID, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INSUFFICIENT_TIER", env.Error.Code)

	var details DeniedDetails
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	assert.Equal(t, tier.Premium, details.RequiredTier)
	assert.Equal(t, tier.VIP, details.ViewerTier)
	assert.Equal(t, "Stormboyz teaser", details.Summary)
	assert.NotContains(t, rec.Body.String(), "full text")
}

func TestGetAnonymousStartItem(t *testing.T) {
	item := newItem("Boyz", tier.Start)
	svc := NewService(newMemoryRepo(item), staticTiers{}, true)

	rec, env := serve(t, svc, "", http.MethodGet, "/content/"+item.ID, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var detail ItemDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "Boyz full text", detail.Body)
	assert.Equal(t, int64(1), detail.ViewCount)
	assert.False(t, detail.Locked)
}

func TestSearchWithoutQueryIsBadRequest(t *testing.T) {
	svc := NewService(newMemoryRepo(), staticTiers{}, true)

	rec, env := serve(t, svc, "", http.MethodGet, "/content/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestCreateWithUnknownTier(t *testing.T) {
	svc := NewService(newMemoryRepo(), staticTiers{}, true)

	rec, env := serve(t, svc, "admin", http.MethodPost, "/admin/content",
		`{"category_path":["Dota 2"],"title":"Pudge","body":"hook","required_tier":"gold"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_TIER", env.Error.Code)
}
