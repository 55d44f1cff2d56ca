package notify

import (
	"sync"

	"github.com/portalhq/sessiond/internal/session/domain"
)

// Client represents one connected realtime channel bound to a principal at
// handshake time.
//
// Send is intentionally never closed by the hub so concurrent notifiers
// cannot panic on a closed channel; done signals the writer loop to stop,
// and Close is idempotent.
type Client struct {
	Principal string
	SessionID string
	Send      chan domain.ForceLogoutEvent

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(principal, sessionID string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 8
	}
	return &Client{
		Principal: principal,
		SessionID: sessionID,
		Send:      make(chan domain.ForceLogoutEvent, queueSize),
		done:      make(chan struct{}),
	}
}

// TrySend queues an event without blocking. Returns false if the client is
// shutting down or its queue is full.
func (c *Client) TrySend(event domain.ForceLogoutEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Send <- event:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close signals the client goroutines to stop (idempotent). It does NOT
// close Send, keeping concurrent TrySend safe.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
