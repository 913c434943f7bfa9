package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"hwbot/pkg/logx"
)

//go:embed migrations.sql
var migrations string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer: the journal.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Debug("sqlite pragma failed", logx.String("pragma", pragma), logx.Err(err))
		}
	}

	if _, err := db.Exec(migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendCycle(ctx context.Context, r CycleRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles(at, cycle_id, ok, kind, err, cursor, items, sent, took_ms)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		r.At.UTC().Format(time.RFC3339Nano), r.CycleID, boolInt(r.OK), nullStr(r.Kind), nullStr(r.Error),
		r.Cursor, r.Items, r.Sent, r.TookMS,
	)
	return err
}

func (s *sqliteStore) AppendNotification(ctx context.Context, r NotificationRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications(at, cycle_id, outcome, failure, text, err)
		 VALUES(?,?,?,?,?,?)`,
		r.At.UTC().Format(time.RFC3339Nano), r.CycleID, r.Outcome, boolInt(r.Failure), r.Text, nullStr(r.Error),
	)
	return err
}

func (s *sqliteStore) LastSent(ctx context.Context) (NotificationRecord, bool, error) {
	if s == nil || s.db == nil {
		return NotificationRecord{}, false, ErrDisabled
	}
	var (
		r       NotificationRecord
		at      string
		failure int
		errText sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT at, cycle_id, outcome, failure, text, err FROM notifications
		 WHERE outcome = ? ORDER BY id DESC LIMIT 1`, OutcomeSent,
	).Scan(&at, &r.CycleID, &r.Outcome, &failure, &r.Text, &errText)
	if errors.Is(err, sql.ErrNoRows) {
		return NotificationRecord{}, false, nil
	}
	if err != nil {
		return NotificationRecord{}, false, err
	}
	r.At, _ = time.Parse(time.RFC3339Nano, at)
	r.Failure = failure != 0
	r.Error = errText.String
	return r, true, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
