package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/portalhq/sessiond/internal/session/domain"
)

// Hub tracks the live channels registered per principal and fans forced-
// logout events out to them. A principal may hold several live channels
// (tabs, devices); an event goes to all of them. No live channel is the
// common case - a principal logging in from a new device usually has no
// prior connection - and is not an error.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // principal -> connected clients
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		clients: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a client under its principal until Unregister is called.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.Principal]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.Principal] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.Principal]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.Principal)
	}
}

// ConnectedPrincipals reports how many principals currently hold a channel.
func (h *Hub) ConnectedPrincipals() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NotifyForcedLogout pushes a FORCE_LOGOUT event to every live channel of
// principal. Sends are non-blocking: a client whose queue is full misses the
// event rather than stalling the login that triggered it.
func (h *Hub) NotifyForcedLogout(ctx context.Context, principal, sessionID string) {
	event := domain.NewForceLogoutEvent(principal, sessionID, time.Now().UTC())

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[principal]))
	for c := range h.clients[principal] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	delivered := 0
	for _, c := range targets {
		if c.TrySend(event) {
			delivered++
		}
	}

	h.log.Info("force-logout dispatched",
		"principal", principal,
		"session_id", sessionID,
		"channels", len(targets),
		"delivered", delivered,
	)
}
