package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/portalhq/sessiond/internal/session/domain"
	"github.com/portalhq/sessiond/pkg/httpx"
	"github.com/portalhq/sessiond/pkg/slogx"
)

const (
	wsDefaultWriteTimeout   = 5 * time.Second
	wsDefaultHeartbeatEvery = 30 * time.Second
	wsDefaultHeartbeatWait  = 5 * time.Second
	wsMaxPingFailures       = 3
	wsSendQueueSize         = 8
	wsMaxFrameBytes         = 4 * 1024
)

// WSGateway upgrades HTTP requests into per-principal notification channels.
//
// The bearer token is validated once at handshake; the resolved principal is
// bound to the connection for its whole lifetime and later frames are not
// re-authenticated token-by-token. The channel is push-only and expected to
// sit idle for long stretches, so liveness is server-driven: a heartbeat
// goroutine pings on an interval and only a run of missed pongs tears the
// connection down. Clients never need to send data frames to stay connected.
type WSGateway struct {
	log  *slog.Logger
	hub  *Hub
	auth httpx.Authenticator

	writeTimeout     time.Duration
	heartbeatEvery   time.Duration
	heartbeatTimeout time.Duration
}

// NewWSGateway constructs a gateway serving the hub's events to connected
// clients authenticated through auth.
func NewWSGateway(log *slog.Logger, hub *Hub, auth httpx.Authenticator) *WSGateway {
	if log == nil {
		log = slog.Default()
	}
	return &WSGateway{
		log:              log,
		hub:              hub,
		auth:             auth,
		writeTimeout:     wsDefaultWriteTimeout,
		heartbeatEvery:   wsDefaultHeartbeatEvery,
		heartbeatTimeout: wsDefaultHeartbeatWait,
	}
}

// ServeHTTP implements http.Handler.
func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	principal, err := g.authenticate(r)
	if err != nil {
		log.Info("ws handshake rejected", "err", err, "remote", r.RemoteAddr)
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn("ws accept failed", "err", err)
		return
	}
	conn.SetReadLimit(wsMaxFrameBytes)

	client := NewClient(principal.Name, principal.SessionID, wsSendQueueSize)
	g.hub.Register(client)

	log.Info("ws channel open",
		"principal", principal.Name,
		"session_id", principal.SessionID,
	)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// shutdown is idempotent. It does NOT close client.Send.
	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.hub.Unregister(client)
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
		})
	}
	defer shutdown(websocket.StatusNormalClosure, "bye")

	// Writer: forced-logout events flow out; a failed write ends the channel.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-connCtx.Done():
				return
			case <-client.Done():
				return
			case event := <-client.Send:
				if err := g.writeEvent(connCtx, conn, event); err != nil {
					log.Info("ws write failed",
						"principal", client.Principal,
						"close_status", websocket.CloseStatus(err),
						"err", err,
					)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	// Heartbeat: the server pings; only a run of missed pongs counts as a
	// dead peer. An idle-but-healthy channel stays up indefinitely.
	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.heartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-connCtx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(connCtx, g.heartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					log.Info("ws ping failed",
						"principal", client.Principal,
						"failures", failures,
						"err", err,
					)
					if failures >= wsMaxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

	// Reader: the channel is push-only, so inbound frames only matter as a
	// close signal. Reads carry no idle deadline; liveness is the
	// heartbeat's job.
	for {
		if _, _, err := conn.Read(connCtx); err != nil {
			if websocket.CloseStatus(err) == -1 && connCtx.Err() == nil {
				log.Debug("ws read ended", "principal", client.Principal, "err", err)
			}
			break
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone
	<-heartbeatDone
}

func (g *WSGateway) writeEvent(ctx context.Context, conn *websocket.Conn, event domain.ForceLogoutEvent) error {
	writeCtx, cancel := context.WithTimeout(ctx, g.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, event)
}

// authenticate pulls the bearer credential from the Authorization header or,
// for browser WebSocket clients that cannot set headers, the access_token
// query parameter.
func (g *WSGateway) authenticate(r *http.Request) (domain.Principal, error) {
	raw := ""
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		raw = strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
	} else if q := r.URL.Query().Get("access_token"); q != "" {
		raw = q
	}
	if raw == "" {
		return domain.Principal{}, errors.New("missing bearer token")
	}

	return g.auth.Authenticate(r.Context(), raw)
}
