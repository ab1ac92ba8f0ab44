package domain

import "time"

// SiteRefresh announces that a site bundle was republished. Bridge
// sessions attached to the site push a refresh to their clients.
type SiteRefresh struct {
	SiteID     string    `json:"site_id"`
	Version    int       `json:"version"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SessionEvent is a bridge session telemetry record: session opened or
// closed, an operation handled, or an error surfaced to the client.
type SessionEvent struct {
	SessionID  string    `json:"session_id"`
	SiteID     string    `json:"site_id,omitempty"`
	Kind       string    `json:"kind"`
	Operation  string    `json:"operation,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Session event kinds.
const (
	SessionOpened    = "opened"
	SessionClosed    = "closed"
	SessionOperation = "operation"
	SessionError     = "error"
)
