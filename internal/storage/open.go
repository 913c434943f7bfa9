package storage

import (
	"context"
	"fmt"
	"strings"

	"hwbot/pkg/logx"
)

// Store is the persistence API used by the journal.
type Store interface {
	AppendCycle(ctx context.Context, r CycleRecord) error
	AppendNotification(ctx context.Context, r NotificationRecord) error
	// LastSent returns the most recent notification with OutcomeSent.
	LastSent(ctx context.Context) (NotificationRecord, bool, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}

// ValidDriver reports whether Open understands driver.
func ValidDriver(driver string) bool {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "none", "file", "sqlite", "sqlite3":
		return true
	}
	return false
}
