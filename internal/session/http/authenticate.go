package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/portalhq/sessiond/internal/session/service"
	"github.com/portalhq/sessiond/pkg/httpx"
	"github.com/portalhq/sessiond/pkg/slogx"
)

// AuthenticateHandler serves POST /api/authenticate.
// It verifies the password credential and issues a fresh token pair,
// superseding any live session the principal already holds.
type AuthenticateHandler struct {
	TokenService *service.TokenService
}

type authenticateRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthenticateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	pair, err := h.TokenService.Login(ctx, req.Username, req.Password, req.RememberMe)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "bad username or password")
		case errors.Is(err, service.ErrStoreUnavailable):
			log.Error("login failed: session store unavailable", "err", err)
			httpx.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "session store unreachable, retry shortly")
		default:
			log.Error("login failed", "err", err)
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
