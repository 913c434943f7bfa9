package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"hwbot/pkg/logx"
)

// fileStore appends JSON Lines to two files:
//   - <prefix>.cycles.jsonl
//   - <prefix>.notifications.jsonl
//
// The last sent notification is loaded once on open and then kept in memory.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	cycles        *os.File
	notifications *os.File

	lastSent    NotificationRecord
	hasLastSent bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	notifPath := prefix + ".notifications.jsonl"
	s := &fileStore{log: log}
	if last, ok, err := scanLastSent(notifPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("notification history unreadable", logx.String("path", notifPath), logx.Err(err))
	} else if ok {
		s.lastSent, s.hasLastSent = last, true
	}

	var err error
	if s.cycles, err = os.OpenFile(prefix+".cycles.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err != nil {
		return nil, err
	}
	if s.notifications, err = os.OpenFile(notifPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err != nil {
		_ = s.cycles.Close()
		return nil, err
	}
	return s, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.cycles != nil {
		errs = append(errs, s.cycles.Close())
		s.cycles = nil
	}
	if s.notifications != nil {
		errs = append(errs, s.notifications.Close())
		s.notifications = nil
	}
	return errors.Join(errs...)
}

func (s *fileStore) AppendCycle(_ context.Context, r CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycles == nil {
		return errors.New("cycle log closed")
	}
	return json.NewEncoder(s.cycles).Encode(r)
}

func (s *fileStore) AppendNotification(_ context.Context, r NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifications == nil {
		return errors.New("notification log closed")
	}
	if err := json.NewEncoder(s.notifications).Encode(r); err != nil {
		return err
	}
	if r.Outcome == OutcomeSent {
		s.lastSent, s.hasLastSent = r, true
	}
	return nil
}

func (s *fileStore) LastSent(context.Context) (NotificationRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSent, s.hasLastSent, nil
}

// scanLastSent replays a notification log and returns its last sent record.
// Torn or foreign lines are skipped.
func scanLastSent(path string) (NotificationRecord, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return NotificationRecord{}, false, err
	}
	defer f.Close()

	var (
		last NotificationRecord
		ok   bool
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var r NotificationRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		if r.Outcome == OutcomeSent {
			last, ok = r, true
		}
	}
	return last, ok, sc.Err()
}
