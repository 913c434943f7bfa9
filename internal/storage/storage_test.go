package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hwbot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "postgres", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
	if ValidDriver("postgres") || !ValidDriver("sqlite") {
		t.Fatal("ValidDriver mismatch")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		if _, err := Open(Config{Driver: driver}, logx.Nop()); err == nil {
			t.Fatalf("%s: expected error for empty path", driver)
		}
	}
}

// exerciseStore runs the same contract against every driver.
func exerciseStore(t *testing.T, cfg Config) {
	t.Helper()
	ctx := context.Background()

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok, err := st.LastSent(ctx); err != nil || ok {
		t.Fatalf("LastSent on empty store = %v, %v", ok, err)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := st.AppendCycle(ctx, CycleRecord{At: at, CycleID: "c1", OK: true, Cursor: 100, Items: 1, Sent: 1, TookMS: 12}); err != nil {
		t.Fatalf("AppendCycle: %v", err)
	}
	if err := st.AppendCycle(ctx, CycleRecord{At: at, CycleID: "c2", Kind: "missing_field", Error: "boom", Cursor: 100}); err != nil {
		t.Fatalf("AppendCycle: %v", err)
	}
	recs := []NotificationRecord{
		{At: at, CycleID: "c1", Outcome: OutcomeSent, Text: "first"},
		{At: at, CycleID: "c2", Outcome: OutcomeSent, Text: "second", Failure: true},
		{At: at, CycleID: "c3", Outcome: OutcomeFailed, Text: "third", Error: "down"},
	}
	for _, r := range recs {
		if err := st.AppendNotification(ctx, r); err != nil {
			t.Fatalf("AppendNotification: %v", err)
		}
	}
	last, ok, err := st.LastSent(ctx)
	if err != nil || !ok || last.Text != "second" || !last.Failure || last.CycleID != "c2" {
		t.Fatalf("LastSent = %+v, %v, %v", last, ok, err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen: history survives.
	st, err = Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	last, ok, err = st.LastSent(ctx)
	if err != nil || !ok || last.Text != "second" {
		t.Fatalf("LastSent after reopen = %+v, %v, %v", last, ok, err)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	exerciseStore(t, Config{Driver: "file", Path: filepath.Join(dir, "audit", "hwbot.db")})

	for _, name := range []string{"hwbot.cycles.jsonl", "hwbot.notifications.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, "audit", name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestFileStoreSkipsTornLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hwbot.notifications.jsonl")
	body := `{"outcome":"sent","text":"ok"}` + "\n" + `{"outcome":"se`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "hwbot.jsonl")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	last, ok, _ := st.LastSent(context.Background())
	if !ok || last.Text != "ok" {
		t.Fatalf("LastSent = %+v, %v", last, ok)
	}
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "hwbot.db"), BusyTimeout: time.Second})
}
