package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines files next to Path
//   - "sqlite": SQLite database at Path
//
// An empty Driver or "none" disables storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Notification outcomes.
const (
	OutcomeSent       = "sent"
	OutcomeSuppressed = "suppressed"
	OutcomeFailed     = "failed"
)

// CycleRecord is one finished poll cycle.
type CycleRecord struct {
	At      time.Time `json:"at"`
	CycleID string    `json:"cycle_id"`
	OK      bool      `json:"ok"`
	Kind    string    `json:"kind,omitempty"`
	Error   string    `json:"error,omitempty"`
	Cursor  int64     `json:"cursor"`
	Items   int       `json:"items"`
	Sent    int       `json:"sent"`
	TookMS  int64     `json:"took_ms"`
}

// NotificationRecord is one attempt to deliver a message.
type NotificationRecord struct {
	At      time.Time `json:"at"`
	CycleID string    `json:"cycle_id"`
	Outcome string    `json:"outcome"`
	Failure bool      `json:"failure,omitempty"`
	Text    string    `json:"text"`
	Error   string    `json:"error,omitempty"`
}
