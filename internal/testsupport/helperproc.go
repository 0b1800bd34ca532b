package testsupport

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
)

const (
	// FakeModeEnv selects fake lightningd behavior when the test binary is
	// re-executed as the daemon.
	FakeModeEnv = "LNHARNESS_FAKE_LIGHTNINGD"
	// FakeCounterEnv names the file counting fake daemon invocations.
	FakeCounterEnv = "LNHARNESS_FAKE_COUNTER"
)

// Fake daemon modes.
const (
	// FakeReady serves the control socket until stop or SIGTERM.
	FakeReady = "ready"
	// FakeHang never becomes ready and never exits on its own.
	FakeHang = "hang"
	// FakeIgnoreStop answers stop but keeps running until killed.
	FakeIgnoreStop = "ignore-stop"
)

// FakeExit returns the mode that exits immediately with code.
func FakeExit(code int) string {
	return "exit:" + strconv.Itoa(code)
}

// FakeFlaky returns the mode that exits with code 1 for the first k
// invocations and serves normally afterwards. It requires FakeCounterEnv.
func FakeFlaky(k int) string {
	return "flaky:" + strconv.Itoa(k)
}

// UseFakeLightningd configures the environment so that spawning the returned
// executable runs the fake daemon in mode. The test binary must call
// MaybeRunFakeLightningd from TestMain.
func UseFakeLightningd(t *testing.T, mode string) string {
	t.Helper()

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("resolve test executable: %v", err)
	}
	t.Setenv(FakeModeEnv, mode)
	t.Setenv(FakeCounterEnv, filepath.Join(ShortTempDir(t), "invocations"))
	return exe
}

// FakeInvocations reports how many times the fake daemon was started.
func FakeInvocations(t *testing.T) int {
	t.Helper()

	data, err := os.ReadFile(os.Getenv(FakeCounterEnv))
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("read invocation counter: %v", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("parse invocation counter: %v", err)
	}
	return n
}

// MaybeRunFakeLightningd turns the current process into a fake lightningd when
// FakeModeEnv is set, and never returns in that case.
func MaybeRunFakeLightningd() {
	mode := os.Getenv(FakeModeEnv)
	if mode == "" {
		return
	}
	os.Exit(runFakeLightningd(mode, os.Args[1:]))
}

func runFakeLightningd(mode string, args []string) int {
	dir, network := parseFakeArgs(args)
	invocation, err := bumpCounter(os.Getenv(FakeCounterEnv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "fake lightningd: %v\n", err)
		return 2
	}

	switch {
	case strings.HasPrefix(mode, "exit:"):
		code, _ := strconv.Atoi(strings.TrimPrefix(mode, "exit:"))
		return code
	case strings.HasPrefix(mode, "flaky:"):
		k, _ := strconv.Atoi(strings.TrimPrefix(mode, "flaky:"))
		if invocation <= k {
			return 1
		}
	case mode == FakeHang:
		waitForSignal()
		return 0
	}

	if dir == "" {
		fmt.Fprintln(os.Stderr, "fake lightningd: --lightning-dir is required")
		return 2
	}
	node, err := StartFakeNode(dir, network)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fake lightningd: %v\n", err)
		return 2
	}
	defer node.Close()
	node.SetIgnoreStop(mode == FakeIgnoreStop)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-node.Stopped():
		return 0
	case <-sigs:
		return 0
	}
}

func waitForSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	<-sigs
}

func parseFakeArgs(args []string) (dir, network string) {
	network = "bitcoin"
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--lightning-dir="):
			dir = strings.TrimPrefix(arg, "--lightning-dir=")
		case strings.HasPrefix(arg, "--network="):
			network = strings.TrimPrefix(arg, "--network=")
		case arg == "--regtest", arg == "--signet", arg == "--testnet":
			network = strings.TrimPrefix(arg, "--")
		}
	}
	return dir, network
}

func bumpCounter(path string) (int, error) {
	if path == "" {
		return 1, nil
	}
	n := 0
	if data, err := os.ReadFile(path); err == nil {
		n, _ = strconv.Atoi(strings.TrimSpace(string(data)))
	} else if !os.IsNotExist(err) {
		return 0, err
	}
	n++
	return n, os.WriteFile(path, []byte(strconv.Itoa(n)), 0o644)
}
