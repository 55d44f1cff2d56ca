package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/portalhq/sessiond/internal/session/service"
	"github.com/portalhq/sessiond/pkg/httpx"
	"github.com/portalhq/sessiond/pkg/slogx"
)

// LogoutHandler serves POST /api/logout.
// Both revokes are best-effort and the endpoint always answers 200: a client
// logging out with an already-dead token should not see an error.
type LogoutHandler struct {
	TokenService *service.TokenService
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
		if err := h.TokenService.Revoke(ctx, token); err != nil {
			log.Warn("access token revoke failed on logout", "err", err)
		}
	}

	var req logoutRequest
	if r.Body != nil {
		// Body is optional; ignore decode failures the same as an empty body.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.RefreshToken != "" {
		if err := h.TokenService.RevokeRefresh(ctx, req.RefreshToken); err != nil {
			log.Warn("refresh token revoke failed on logout", "err", err)
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
