// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/uznavaykin/internal/core"
)

type stubVerifier struct {
	claims *AccessTokenClaims
	err    error
}

func (s stubVerifier) VerifyAccessToken(
	_ context.Context,
	_ string,
) (*AccessTokenClaims, error) {
	return s.claims, s.err
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := ""
		if c := GetClaims(r.Context()); c != nil {
			role = c.Role
		}
		_, _ = w.Write([]byte(GetUserID(r.Context()) + "|" + role))
	})
}

func bearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestExtractToken(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer  xyz ":   "xyz",
		"Basic dXNlcjpw": "",
		"Bearer":         "",
	}

	for header, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, ExtractToken(r), "header %q", header)
	}
}

func TestAuthenticator(t *testing.T) {
	claims := &AccessTokenClaims{UserID: "u1", Role: "user"}

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Authenticator(stubVerifier{claims: claims})(echoUser()).ServeHTTP(rec, bearer(""))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		h := Authenticator(stubVerifier{
			err: fmt.Errorf("verify: %w", core.ErrTokenExpired),
		})(echoUser())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, bearer("t"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
	})

	t.Run("valid token populates context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Authenticator(stubVerifier{claims: claims})(echoUser()).ServeHTTP(rec, bearer("t"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1|user", rec.Body.String())
	})
}

func TestOptionalAuthIgnoresBadTokens(t *testing.T) {
	rec := httptest.NewRecorder()
	OptionalAuth(stubVerifier{err: core.ErrTokenInvalid})(echoUser()).
		ServeHTTP(rec, bearer("junk"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "|", rec.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	for role, want := range map[string]int{
		"":      http.StatusUnauthorized,
		"user":  http.StatusForbidden,
		"admin": http.StatusOK,
	} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if role != "" {
			r = r.WithContext(WithClaims(r.Context(), &AccessTokenClaims{
				UserID: "u1",
				Role:   role,
			}))
		}
		rec := httptest.NewRecorder()
		RequireAdmin(echoUser()).ServeHTTP(rec, r)
		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}
