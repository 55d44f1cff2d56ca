package domain

import "time"

// EventForceLogout is the type tag on forced-logout push events.
const EventForceLogout = "FORCE_LOGOUT"

// ForceLogoutEvent is pushed to a principal's live channel when a newer login
// supersedes their session. Clients treat it as an immediate local logout.
type ForceLogoutEvent struct {
	Type      string    `json:"type"`
	Principal string    `json:"principal"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// NewForceLogoutEvent builds the event for the session identified by sid.
func NewForceLogoutEvent(principal, sid string, now time.Time) ForceLogoutEvent {
	return ForceLogoutEvent{
		Type:      EventForceLogout,
		Principal: principal,
		SessionID: sid,
		Timestamp: now,
		Message:   "your account signed in from another device",
	}
}
