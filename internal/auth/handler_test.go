// AngelaMos | 2026
// handler_test.go

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func post(t *testing.T, h http.Handler, path, body string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func newAuthRouter(f *serviceFixture) http.Handler {
	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, func(next http.Handler) http.Handler {
		return next
	})
	return r
}

func TestHandlerRegisterAndDuplicate(t *testing.T) {
	h := newAuthRouter(newServiceFixture(t))
	body := `{"username":"reader","email":"reader@example.com","password":"secret1"}`

	code, env := post(t, h, "/auth/register", body)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "reader", resp.User.Username)
	assert.Equal(t, "Bearer", resp.Tokens.TokenType)

	code, env = post(t, h, "/auth/register", body)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)
}

func TestHandlerValidation(t *testing.T) {
	h := newAuthRouter(newServiceFixture(t))

	code, _ := post(t, h, "/auth/register", `{"username":"x","email":"bad","password":"1"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = post(t, h, "/auth/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandlerLoginWrongPassword(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)
	h := newAuthRouter(f)

	code, _ := post(t, h, "/auth/login", `{"email":"reader@example.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHandlerRefreshReuse(t *testing.T) {
	f := newServiceFixture(t)
	first := f.register(t)
	h := newAuthRouter(f)
	body := `{"refresh_token":"` + first.Tokens.RefreshToken + `"}`

	code, _ := post(t, h, "/auth/refresh", body)
	require.Equal(t, http.StatusOK, code)

	code, env := post(t, h, "/auth/refresh", body)
	assert.Equal(t, http.StatusUnauthorized, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOKEN_REUSE_DETECTED", env.Error.Code)
}
