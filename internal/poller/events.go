package poller

import "time"

// Event types published on the bus.
const (
	EventCycleSucceeded         = "cycle.succeeded"
	EventCycleFailed            = "cycle.failed"
	EventNotificationSent       = "notification.sent"
	EventNotificationSuppressed = "notification.suppressed"
	EventNotificationFailed     = "notification.failed"
)

// CycleEvent is the payload of cycle.* events.
type CycleEvent struct {
	CycleID string
	Cursor  int64 // cursor after the cycle
	Items   int
	Sent    int
	Kind    string // failure kind, empty on success
	Error   string
	Took    time.Duration
}

// NotificationEvent is the payload of notification.* events.
type NotificationEvent struct {
	CycleID string
	Text    string
	Failure bool // true when the text reports a failure rather than a transition
	Error   string
}
