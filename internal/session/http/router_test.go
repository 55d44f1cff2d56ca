package http_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/portalhq/sessiond/internal/session/directory"
	sessionhttp "github.com/portalhq/sessiond/internal/session/http"
	"github.com/portalhq/sessiond/internal/session/notify"
	"github.com/portalhq/sessiond/internal/session/service"
	"github.com/portalhq/sessiond/internal/session/store/drivers/memory"
	"github.com/portalhq/sessiond/pkg/cryptox"
	"github.com/portalhq/sessiond/pkg/jwtx"
	"github.com/portalhq/sessiond/pkg/slogx"
)

type testServer struct {
	router *sessionhttp.Router
	svc    *service.TokenService
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	key := make([]byte, 64)
	for i := range key {
		key[i] = byte(i)
	}
	codec, err := jwtx.NewCodec(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	hash, err := cryptox.HashPassword("s3cret")
	require.NoError(t, err)
	dir := directory.NewInMemory([]directory.Identity{
		{
			Username:     "alice",
			Role:         "admin",
			Authorities:  []string{"users:read", "users:write"},
			PasswordHash: hash,
		},
	})

	st := memory.NewStore()
	logger := slogx.New(slogx.Config{Level: "error", Format: "json"})
	hub := notify.NewHub(logger)

	svc := &service.TokenService{
		Codec:         codec,
		Store:         st,
		Notifier:      hub,
		Directory:     dir,
		Checker:       dir,
		Issuer:        "sessiond-test",
		AccessTTL:     time.Minute,
		RememberMeTTL: time.Hour,
		RefreshTTL:    24 * time.Hour,
	}

	router := sessionhttp.NewRouter("v0.0.0-test", st, logger)
	router.TokenService = svc
	router.Hub = hub
	router.ApplyRoutes()

	return &testServer{router: router, svc: svc, store: st}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T) (access, refresh string) {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/authenticate", map[string]any{
		"username": "alice",
		"password": "s3cret",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken, resp.RefreshToken
}

func TestAuthenticateEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("issues tokens", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/authenticate", map[string]any{
			"username": "alice",
			"password": "s3cret",
		}, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		require.Contains(t, rec.Header().Get("Authorization"), "Bearer ")

		var resp struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.AccessToken)
		require.NotEmpty(t, resp.RefreshToken)
	})

	t.Run("bad credentials", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/authenticate", map[string]any{
			"username": "alice",
			"password": "wrong",
		}, nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_credentials")
	})

	t.Run("missing fields", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/authenticate", map[string]any{
			"username": "alice",
		}, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		ts := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/authenticate", bytes.NewBufferString("{nope"))
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rate limited after repeated attempts", func(t *testing.T) {
		ts := newTestServer(t)

		var last *httptest.ResponseRecorder
		for range 6 {
			last = ts.do(t, http.MethodPost, "/api/authenticate", map[string]any{
				"username": "alice",
				"password": "wrong",
			}, nil)
		}
		require.Equal(t, http.StatusTooManyRequests, last.Code)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("exchanges a refresh token", func(t *testing.T) {
		ts := newTestServer(t)
		access, refresh := ts.login(t)

		rec := ts.do(t, http.MethodPost, "/api/refresh-token", map[string]any{
			"refreshToken": refresh,
		}, nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEqual(t, access, resp.AccessToken)
		require.Equal(t, refresh, resp.RefreshToken)
	})

	t.Run("rejects an access token", func(t *testing.T) {
		ts := newTestServer(t)
		access, _ := ts.login(t)

		rec := ts.do(t, http.MethodPost, "/api/refresh-token", map[string]any{
			"refreshToken": access,
		}, nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("requires a token", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/refresh-token", map[string]any{}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("revokes both tokens", func(t *testing.T) {
		ts := newTestServer(t)
		access, refresh := ts.login(t)

		rec := ts.do(t, http.MethodPost, "/api/logout", map[string]any{
			"refreshToken": refresh,
		}, http.Header{"Authorization": []string{"Bearer " + access}})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodGet, "/api/session", nil,
			http.Header{"Authorization": []string{"Bearer " + access}})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/refresh-token", map[string]any{
			"refreshToken": refresh,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("succeeds with no credentials at all", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/logout", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "logged out")
	})

	t.Run("succeeds twice with the same token", func(t *testing.T) {
		ts := newTestServer(t)
		access, _ := ts.login(t)

		hdr := http.Header{"Authorization": []string{"Bearer " + access}}
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/logout", nil, hdr).Code)
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/logout", nil, hdr).Code)
	})
}

func TestSessionEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns the authenticated principal", func(t *testing.T) {
		ts := newTestServer(t)
		access, _ := ts.login(t)

		rec := ts.do(t, http.MethodGet, "/api/session", nil,
			http.Header{"Authorization": []string{"Bearer " + access}})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Name        string   `json:"name"`
			Role        string   `json:"role"`
			Authorities []string `json:"authorities"`
			SessionID   string   `json:"sessionId"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "alice", resp.Name)
		require.Equal(t, "admin", resp.Role)
		require.NotEmpty(t, resp.SessionID)
	})

	t.Run("rejects without a token", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodGet, "/api/session", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a superseded token", func(t *testing.T) {
		ts := newTestServer(t)
		first, _ := ts.login(t)
		_, _ = ts.login(t)

		rec := ts.do(t, http.MethodGet, "/api/session", nil,
			http.Header{"Authorization": []string{"Bearer " + first}})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	t.Run("livez", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/livez", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "ok")
	})

	t.Run("readyz with a healthy store", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/readyz", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
