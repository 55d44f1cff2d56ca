package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/portalhq/sessiond/internal/session/domain"
	"github.com/portalhq/sessiond/pkg/slogx"
)

// Authenticator resolves a bearer credential string to a principal or
// rejects it. The token service implements it; the HTTP gate and the
// realtime-channel handshake share the contract.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
}

// AuthnMiddleware extracts the Authorization bearer token, resolves it
// through a, and attaches the principal to the request context. Every
// failure mode - missing header, bad signature, expired, superseded - is a
// uniform 401; the distinction lives in the logs only.
func AuthnMiddleware(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			principal, err := a.Authenticate(ctx, raw)
			if err != nil {
				log.Warn("bearer token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyPrincipal, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
