package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/portalhq/sessiond/internal/session/service"
	"github.com/portalhq/sessiond/pkg/httpx"
	"github.com/portalhq/sessiond/pkg/slogx"
)

// RefreshHandler serves POST /api/refresh-token.
// A valid refresh token yields a new access token without re-running
// credential checks; the refresh token itself is not rotated.
type RefreshHandler struct {
	TokenService *service.TokenService
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refreshToken is required")
		return
	}

	pair, err := h.TokenService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefresh):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "refresh token rejected")
		case errors.Is(err, service.ErrStoreUnavailable):
			log.Error("refresh failed: session store unavailable", "err", err)
			httpx.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "session store unreachable, retry shortly")
		default:
			log.Error("refresh failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "unexpected error")
		}
		return
	}

	w.Header().Set("Authorization", "Bearer "+pair.AccessToken)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
