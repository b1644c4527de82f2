package telemetry

import (
	"context"
	"time"
)

// EventType names a session lifecycle event.
type EventType string

const (
	EventSessionRestored  EventType = "session_restored"
	EventLoginSucceeded   EventType = "login_succeeded"
	EventLoginFailed      EventType = "login_failed"
	EventRefreshSucceeded EventType = "refresh_succeeded"
	EventRefreshFailed    EventType = "refresh_failed"
	EventSessionValid     EventType = "session_valid"
	EventSessionExpired   EventType = "session_expired"
	EventForcedLogout     EventType = "forced_logout"
	EventLogout           EventType = "logout"
	EventUnauthorized     EventType = "unauthorized_response"
)

// Event is one session lifecycle event. Tokens never appear here.
type Event struct {
	Type    EventType
	UserID  int64  // 0 when no user is signed in
	Trigger string // start, navigation, timer, response; empty when not a guard check
	Reason  string
	At      time.Time
}

// EventEmitter emits telemetry events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
