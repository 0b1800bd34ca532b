package harness_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"lnharness/internal/harness"
	"lnharness/internal/lnrpc"
)

type behavior int

const (
	behaveReady behavior = iota
	behaveExit
	behaveHang
	behaveIgnoreStop
)

type fakeProcess struct {
	pid    int
	done   chan struct{}
	once   sync.Once
	status harness.ExitStatus
	killed atomic.Bool
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, done: make(chan struct{})}
}

func (p *fakeProcess) exit(status harness.ExitStatus) {
	p.once.Do(func() {
		p.status = status
		close(p.done)
	})
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) Exited() (harness.ExitStatus, bool) {
	select {
	case <-p.done:
		return p.status, true
	default:
		return harness.ExitStatus{}, false
	}
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Wait() (harness.ExitStatus, error) {
	<-p.done
	return p.status, nil
}

func (p *fakeProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	p.killed.Store(true)
	p.exit(harness.ExitStatus{Code: -1, Signal: syscall.SIGKILL})
	return nil
}

type fakeClient struct {
	proc       *fakeProcess
	ignoreStop bool
	stops      atomic.Int32
	closes     atomic.Int32
}

func (c *fakeClient) GetInfo(context.Context) (*lnrpc.GetInfoResponse, error) {
	return &lnrpc.GetInfoResponse{ID: "02fake", Alias: "FAKE"}, nil
}

func (c *fakeClient) Stop(context.Context) error {
	c.stops.Add(1)
	if !c.ignoreStop {
		c.proc.exit(harness.ExitStatus{Code: 0})
	}
	return nil
}

func (c *fakeClient) Close() error {
	c.closes.Add(1)
	return nil
}

// fakeDaemon scripts one behavior per spawn; the last behavior repeats.
type fakeDaemon struct {
	t         *testing.T
	behaviors []behavior
	exitCode  int
	spawnErr  error

	mu       sync.Mutex
	requests []harness.SpawnRequest
	procs    []*fakeProcess
	ready    map[string]*fakeClient
}

func newFakeDaemon(t *testing.T, behaviors ...behavior) *fakeDaemon {
	return &fakeDaemon{t: t, behaviors: behaviors, exitCode: 1, ready: make(map[string]*fakeClient)}
}

func (d *fakeDaemon) Spawn(_ context.Context, req harness.SpawnRequest) (harness.Process, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, req)
	if d.spawnErr != nil {
		return nil, d.spawnErr
	}
	n := len(d.requests)
	b := d.behaviors[min(n, len(d.behaviors))-1]
	proc := newFakeProcess(1000 + n)
	d.procs = append(d.procs, proc)

	dir := lightningDir(d.t, req.Args)
	switch b {
	case behaveExit:
		proc.exit(harness.ExitStatus{Code: d.exitCode})
	case behaveReady, behaveIgnoreStop:
		socket := filepath.Join(dir, harness.DefaultNetwork, lnrpc.SocketName)
		d.ready[socket] = &fakeClient{proc: proc, ignoreStop: b == behaveIgnoreStop}
	}
	return proc, nil
}

func (d *fakeDaemon) Probe(_ context.Context, path string) (harness.Client, *lnrpc.GetInfoResponse, error) {
	d.mu.Lock()
	client, ok := d.ready[path]
	d.mu.Unlock()
	if !ok {
		return nil, nil, errors.New("connection refused")
	}
	info, _ := client.GetInfo(context.Background())
	return client, info, nil
}

func (d *fakeDaemon) spawns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func (d *fakeDaemon) request(i int) harness.SpawnRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests[i]
}

func (d *fakeDaemon) process(i int) *fakeProcess {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.procs[i]
}

func (d *fakeDaemon) client(socket string) *fakeClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready[socket]
}

func (d *fakeDaemon) options(extra ...harness.Option) []harness.Option {
	opts := []harness.Option{
		harness.WithSpawner(d),
		harness.WithProber(d),
		harness.WithPollInterval(time.Millisecond),
	}
	return append(opts, extra...)
}

func lightningDir(t *testing.T, args []string) string {
	t.Helper()
	if len(args) == 0 || !strings.HasPrefix(args[0], "--lightning-dir=") {
		t.Errorf("first argument must be --lightning-dir, got %v", args)
		return ""
	}
	return strings.TrimPrefix(args[0], "--lightning-dir=")
}

type recorder struct {
	mu     sync.Mutex
	events []harness.Event
}

func (r *recorder) Observe(e harness.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, string(e.Kind))
	}
	return out
}
