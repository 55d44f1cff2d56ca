package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyAuthority the caller must hold at least one of the listed
// authorities. Must run inside AuthnMiddleware.
func RequireAnyAuthority(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, a := range required {
		want[a] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromCtx(r.Context())
			if ok {
				for _, a := range principal.Authorities {
					if _, hit := want[a]; hit {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			writeAuthorityError(w, required...)
		})
	}
}

// RFC 6750-compliant error response for insufficient authority.
func writeAuthorityError(w http.ResponseWriter, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "insufficient_scope",
		"error_description": "caller lacks a required authority",
	})
}
