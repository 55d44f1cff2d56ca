package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/portalhq/sessiond/internal/session/domain"
	"github.com/portalhq/sessiond/pkg/httpx"
)

type stubAuthenticator struct {
	token     string
	principal domain.Principal
	err       error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (domain.Principal, error) {
	if s.err != nil {
		return domain.Principal{}, s.err
	}
	if token != s.token {
		return domain.Principal{}, context.Canceled
	}
	return s.principal, nil
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	auth := stubAuthenticator{
		token: "good-token",
		principal: domain.Principal{
			Name:        "alice",
			Role:        "admin",
			Authorities: []string{"users:read"},
			SessionID:   "sid-1",
		},
	}

	var seen domain.Principal
	var seenOK bool
	handler := httpx.AuthnMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, seenOK = httpx.PrincipalFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid bearer token", func(t *testing.T) {
		seen, seenOK = domain.Principal{}, false

		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, seenOK)
		require.Equal(t, "alice", seen.Name)
		require.Equal(t, "sid-1", seen.SessionID)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwdw==")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.Header.Set("Authorization", "Bearer forged-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAnyAuthority(t *testing.T) {
	t.Parallel()

	protected := httpx.RequireAnyAuthority("users:write", "admin")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	withPrincipal := func(req *http.Request, p domain.Principal) *http.Request {
		return req.WithContext(context.WithValue(req.Context(), httpx.CtxKeyPrincipal, p))
	}

	t.Run("authority present", func(t *testing.T) {
		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), domain.Principal{
			Name:        "alice",
			Authorities: []string{"users:write"},
		})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("authority missing", func(t *testing.T) {
		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), domain.Principal{
			Name:        "alice",
			Authorities: []string{"users:read"},
		})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no principal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
	})
}
