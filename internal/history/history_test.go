package history_test

import (
	"context"
	"database/sql"
	"errors"
	"syscall"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"lnharness/internal/harness"
	"lnharness/internal/history"
	"lnharness/internal/testsupport"
)

func TestObserveRecordsEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	exited := harness.ExitStatus{Code: 1}
	killed := harness.ExitStatus{Code: -1, Signal: syscall.SIGKILL}
	events := []harness.Event{
		{Time: base, Kind: harness.EventSpawned, LaunchID: "a", Attempt: 1, PID: 10, WorkDir: "/tmp/one"},
		{Time: base.Add(time.Second), Kind: harness.EventEarlyExit, LaunchID: "a", Attempt: 1, PID: 10, Status: &exited, Polls: 3, Elapsed: 250 * time.Millisecond},
		{Time: base.Add(2 * time.Second), Kind: harness.EventSpawned, LaunchID: "b", Attempt: 1, PID: 20, Persistent: true},
		{Time: base.Add(3 * time.Second), Kind: harness.EventKilled, LaunchID: "b", Attempt: 1, PID: 20, Status: &killed, Err: errors.New("boom")},
	}
	for _, e := range events {
		store.Observe(e)
	}

	recent, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}
	if recent[0].Kind != "killed" || recent[2].Kind != "early_exit" {
		t.Fatalf("expected newest first, got %s..%s", recent[0].Kind, recent[2].Kind)
	}
	if recent[0].Signal == nil || *recent[0].Signal != int(syscall.SIGKILL) || recent[0].Status() != "signal 9" {
		t.Fatalf("unexpected kill record %+v", recent[0])
	}
	if recent[0].Error != "boom" || !recent[1].Persistent {
		t.Fatalf("unexpected records %+v %+v", recent[0], recent[1])
	}
	early := recent[2]
	if early.ExitCode == nil || *early.ExitCode != 1 || early.Signal != nil || early.Status() != "exit 1" {
		t.Fatalf("unexpected early exit record %+v", early)
	}
	if early.Polls != 3 || early.Elapsed != 250*time.Millisecond || !early.CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected early exit record %+v", early)
	}

	launch, err := store.Launch(ctx, "a")
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if len(launch) != 2 || launch[0].Kind != "spawned" || launch[1].Kind != "early_exit" {
		t.Fatalf("unexpected launch records %+v", launch)
	}
	if launch[0].WorkDir != "/tmp/one" || launch[0].Status() != "" {
		t.Fatalf("unexpected spawned record %+v", launch[0])
	}

	all, err := store.Recent(ctx, 0)
	if err != nil || len(all) != 4 {
		t.Fatalf("expected all 4 records, got %d err=%v", len(all), err)
	}
}

func TestPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	cutoff := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{
		cutoff.Add(-48 * time.Hour),
		cutoff.Add(-time.Nanosecond),
		cutoff,
		cutoff.Add(500 * time.Millisecond),
	} {
		if _, err := store.Append(ctx, history.Record{LaunchID: "x", Attempt: i + 1, Kind: "spawned", CreatedAt: at}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	removed, err := store.Prune(ctx, cutoff)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 rows pruned, got %d", removed)
	}
	left, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(left) != 2 || left[0].Attempt != 4 || left[1].Attempt != 3 {
		t.Fatalf("unexpected remaining rows %+v", left)
	}
}

func TestReopenKeepsEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	store.Observe(harness.Event{Kind: harness.EventReady, LaunchID: "keep", Attempt: 1})
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenHistory(t, cfg)
	records, err := reopened.Launch(context.Background(), "keep")
	if err != nil || len(records) != 1 {
		t.Fatalf("expected persisted record, got %d err=%v", len(records), err)
	}
	if records[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to default to now")
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", cfg.HistoryPath())
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(cfg.HistoryPath()); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
