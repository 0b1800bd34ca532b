package harness_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lnharness/internal/harness"
	"lnharness/internal/testsupport"
)

func TestStopTwiceReturnsFirstStatus(t *testing.T) {
	daemon := newFakeDaemon(t, behaveReady)
	rec := &recorder{}
	node, err := harness.Launch(context.Background(), "lightningd", tempConf(t), daemon.options(harness.WithObserver(rec))...)
	if err != nil {
		t.Fatalf("Launch returned error: %v", err)
	}
	defer node.Close()

	status, err := node.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if !status.Success() {
		t.Fatalf("expected clean exit, got %s", status)
	}
	again, err := node.Stop(context.Background())
	if !errors.Is(err, harness.ErrAlreadyStopped) {
		t.Fatalf("expected ErrAlreadyStopped, got %v", err)
	}
	if again != status {
		t.Fatalf("expected first status %s, got %s", status, again)
	}
	if c := daemon.client(node.RPCPath()); c.stops.Load() != 1 {
		t.Fatalf("expected one stop request, got %d", c.stops.Load())
	}

	if err := node.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if daemon.process(0).killed.Load() {
		t.Fatal("stopped process must not be killed")
	}
	if got := strings.Join(rec.kinds(), ","); got != "spawned,ready,stopped,closed" {
		t.Fatalf("unexpected events %s", got)
	}
}

func TestStopHonorsContextWhileWaiting(t *testing.T) {
	daemon := newFakeDaemon(t, behaveIgnoreStop)
	node, err := harness.Launch(context.Background(), "lightningd", tempConf(t), daemon.options()...)
	if err != nil {
		t.Fatalf("Launch returned error: %v", err)
	}
	defer node.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := node.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if err := node.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !daemon.process(0).killed.Load() {
		t.Fatal("expected Close to kill a process that ignored stop")
	}
}

func TestStopAfterCloseReportsAlreadyStopped(t *testing.T) {
	daemon := newFakeDaemon(t, behaveReady)
	node, err := harness.Launch(context.Background(), "lightningd", tempConf(t), daemon.options()...)
	if err != nil {
		t.Fatalf("Launch returned error: %v", err)
	}
	if err := node.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	status, err := node.Stop(context.Background())
	if !errors.Is(err, harness.ErrAlreadyStopped) {
		t.Fatalf("expected ErrAlreadyStopped, got %v", err)
	}
	if !status.Signaled() {
		t.Fatalf("expected kill status, got %s", status)
	}
}

func TestClosePersistentStopsGracefully(t *testing.T) {
	daemon := newFakeDaemon(t, behaveReady)
	rec := &recorder{}
	conf := harness.DefaultConf()
	conf.StaticDir = filepath.Join(testsupport.ShortTempDir(t), "node")

	node, err := harness.Launch(context.Background(), "lightningd", conf, daemon.options(harness.WithObserver(rec))...)
	if err != nil {
		t.Fatalf("Launch returned error: %v", err)
	}
	if !node.Persistent() || node.WorkDir() != conf.StaticDir {
		t.Fatalf("expected persistent dir %q, got %q", conf.StaticDir, node.WorkDir())
	}
	if err := node.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if c := daemon.client(node.RPCPath()); c.stops.Load() != 1 || c.closes.Load() != 1 {
		t.Fatalf("expected one stop and one close, got stops=%d closes=%d", c.stops.Load(), c.closes.Load())
	}
	if daemon.process(0).killed.Load() {
		t.Fatal("gracefully stopped process must not be killed")
	}
	if _, err := os.Stat(conf.StaticDir); err != nil {
		t.Fatalf("persistent directory must survive Close: %v", err)
	}
	if got := strings.Join(rec.kinds(), ","); got != "spawned,ready,stopped,closed" {
		t.Fatalf("unexpected events %s", got)
	}
}

func TestClosePersistentKillsAfterGrace(t *testing.T) {
	daemon := newFakeDaemon(t, behaveIgnoreStop)
	conf := harness.DefaultConf()
	conf.StaticDir = filepath.Join(testsupport.ShortTempDir(t), "node")
	conf.StopGrace = 20 * time.Millisecond

	node, err := harness.Launch(context.Background(), "lightningd", conf, daemon.options()...)
	if err != nil {
		t.Fatalf("Launch returned error: %v", err)
	}
	start := time.Now()
	if err := node.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if time.Since(start) < conf.StopGrace {
		t.Fatal("expected Close to wait for the stop grace before killing")
	}
	if !daemon.process(0).killed.Load() {
		t.Fatal("expected process to be killed after the grace period")
	}
}

func TestClosePersistentReleasesLock(t *testing.T) {
	daemon := newFakeDaemon(t, behaveReady)
	conf := harness.DefaultConf()
	conf.StaticDir = filepath.Join(testsupport.ShortTempDir(t), "node")

	first, err := harness.Launch(context.Background(), "lightningd", conf, daemon.options()...)
	if err != nil {
		t.Fatalf("Launch returned error: %v", err)
	}
	if _, err := harness.Launch(context.Background(), "lightningd", conf, daemon.options()...); err == nil {
		t.Fatal("expected second launch on a held persistent directory to fail")
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	second, err := harness.Launch(context.Background(), "lightningd", conf, daemon.options()...)
	if err != nil {
		t.Fatalf("expected relaunch after Close, got %v", err)
	}
	_ = second.Close()
}
