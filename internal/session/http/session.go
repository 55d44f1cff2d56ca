package http

import (
	"net/http"

	"github.com/portalhq/sessiond/pkg/httpx"
)

// SessionHandler serves GET /api/session: the authenticated principal's view
// of its own session. Mostly useful for clients to confirm who they are
// after a refresh and for exercising the gate end to end.
type SessionHandler struct{}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := httpx.PrincipalFromCtx(r.Context())
	if !ok {
		// AuthnMiddleware guarantees a principal; reaching here means the
		// route was wired without it.
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "no authenticated principal")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, principal)
}
