package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/portalhq/sessiond/internal/session/notify"
	"github.com/portalhq/sessiond/internal/session/service"
	"github.com/portalhq/sessiond/internal/session/store"
	"github.com/portalhq/sessiond/pkg/httpx"
	"github.com/portalhq/sessiond/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	TokenService *service.TokenService
	Hub          *notify.Hub
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerRealtime()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// POST /api/authenticate - strict rate limit by IP (credential endpoint)
	authenticateHandler := &AuthenticateHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /api/authenticate",
		httpx.Chain(authenticateHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /api/refresh-token - moderate rate limit (no credential check involved)
	refreshHandler := &RefreshHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /api/refresh-token",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /api/logout - best-effort revoke, always succeeds
	logoutHandler := &LogoutHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /api/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /api/session - authenticated introspection of the current session
	sessionHandler := &SessionHandler{}
	r.Mux.Handle("GET /api/session",
		httpx.Chain(sessionHandler,
			httpx.AuthnMiddleware(r.TokenService),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerRealtime() {
	// GET /ws - duplex channel; the handshake authenticates once and binds
	// the principal to the connection for its lifetime.
	gateway := notify.NewWSGateway(r.logger, r.Hub, r.TokenService)
	r.Mux.Handle("GET /ws", gateway)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
