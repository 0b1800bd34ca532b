package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"lnharness/internal/lnrpc"
	"lnharness/internal/logging"
	"lnharness/internal/workdir"
)

// Node is a ready lightningd instance. It owns the process, the control
// connection and the work directory; Close releases all three.
type Node struct {
	launchID  string
	attempt   int
	network   string
	process   Process
	dir       *workdir.Dir
	rpcPath   string
	stopGrace time.Duration
	logger    *slog.Logger
	launcher  *launcher
	started   time.Time
	cleanup   runtime.Cleanup

	client Client
	info   *lnrpc.GetInfoResponse

	mu       sync.Mutex
	stopped  bool
	exited   bool
	status   ExitStatus
	closed   bool
	closeErr error
}

// Client returns the control connection established during readiness.
func (n *Node) Client() Client {
	return n.client
}

// Info returns the getinfo response that confirmed readiness.
func (n *Node) Info() *lnrpc.GetInfoResponse {
	return n.info
}

// WorkDir returns the absolute lightning directory.
func (n *Node) WorkDir() string {
	return n.dir.Path()
}

// Persistent reports whether the work directory survives Close.
func (n *Node) Persistent() bool {
	return n.dir.Persistent()
}

// RPCPath returns the control socket path.
func (n *Node) RPCPath() string {
	return n.rpcPath
}

// Network returns the network subdirectory holding the control socket.
func (n *Node) Network() string {
	return n.network
}

// PID returns the daemon process id.
func (n *Node) PID() int {
	return n.process.PID()
}

// LaunchID identifies the Launch call that produced the node.
func (n *Node) LaunchID() string {
	return n.launchID
}

// Attempt returns the 1-based attempt that became ready.
func (n *Node) Attempt() int {
	return n.attempt
}

// Stop asks the daemon to shut down over the control socket and waits for
// the process to exit. A second call returns the first status together with
// ErrAlreadyStopped, as does a call after Close.
func (n *Node) Stop(ctx context.Context) (ExitStatus, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopped || n.closed {
		return n.status, ErrAlreadyStopped
	}
	if err := n.client.Stop(ctx); err != nil {
		return ExitStatus{}, fmt.Errorf("request stop: %w", err)
	}
	select {
	case <-n.process.Done():
	case <-ctx.Done():
		return ExitStatus{}, fmt.Errorf("wait for lightningd to exit: %w", ctx.Err())
	}
	status, err := n.process.Wait()
	n.recordStopped(status)
	if err != nil {
		return status, fmt.Errorf("wait for lightningd: %w", err)
	}
	return status, nil
}

// Close tears the node down. For persistent work directories it first
// attempts a graceful stop bounded by Conf.StopGrace so the daemon can flush
// its state. It then kills the process if still running, reaps it, closes the
// control connection and releases the work directory, removing it when
// temporary. Close is idempotent.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return n.closeErr
	}
	n.closed = true
	n.closeErr = n.teardown(true)

	status := n.status
	ev := n.event(EventClosed)
	ev.Status = &status
	ev.Err = n.closeErr
	n.launcher.emit(ev)
	n.logger.Info("lightningd released",
		logging.String(logging.FieldEventType, "node_closed"),
		logging.String("status", n.status.String()),
		logging.Bool("persistent", n.dir.Persistent()),
	)
	return n.closeErr
}

// teardown runs on every exit path once a process exists. Callers hold mu or
// have exclusive ownership of the node.
func (n *Node) teardown(graceful bool) error {
	n.cleanup.Stop()

	if graceful && n.dir.Persistent() && !n.stopped && n.client != nil {
		n.gracefulStop()
	}

	var errs []error
	reapable := true
	killed := false
	if _, exited := n.process.Exited(); !exited {
		if err := n.process.Kill(); err != nil {
			errs = append(errs, err)
			reapable = false
		} else {
			killed = true
		}
	}
	if reapable {
		status, err := n.process.Wait()
		if err != nil {
			errs = append(errs, fmt.Errorf("wait for lightningd: %w", err))
		}
		if !n.exited {
			n.exited = true
			n.status = status
		}
		if killed {
			ev := n.event(EventKilled)
			ev.Status = &status
			n.launcher.emit(ev)
			n.logger.Debug("lightningd killed", logging.String("status", status.String()))
		}
	}

	if n.client != nil {
		_ = n.client.Close()
	}
	if err := n.dir.Close(); err != nil {
		errs = append(errs, fmt.Errorf("release work directory: %w", err))
	}
	return errors.Join(errs...)
}

func (n *Node) gracefulStop() {
	ctx, cancel := context.WithTimeout(context.Background(), n.stopGrace)
	defer cancel()

	if err := n.client.Stop(ctx); err != nil {
		logging.WarnWithContext(n.logger, "graceful stop request failed", "graceful_stop_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "lightningd will be killed"),
		)
		return
	}
	select {
	case <-n.process.Done():
		status, _ := n.process.Wait()
		n.recordStopped(status)
	case <-ctx.Done():
		logging.WarnWithContext(n.logger, "lightningd did not exit within stop grace", "graceful_stop_timeout",
			logging.Duration("stop_grace", n.stopGrace),
			logging.String(logging.FieldImpact, "lightningd will be killed"),
		)
	}
}

func (n *Node) recordStopped(status ExitStatus) {
	n.stopped = true
	n.exited = true
	n.status = status
	ev := n.event(EventStopped)
	ev.Status = &status
	n.launcher.emit(ev)
	n.logger.Info("lightningd stopped", logging.String("status", status.String()))
}

func (n *Node) event(kind EventKind) Event {
	return Event{
		Kind:       kind,
		LaunchID:   n.launchID,
		Attempt:    n.attempt,
		PID:        n.process.PID(),
		WorkDir:    n.dir.Path(),
		Persistent: n.dir.Persistent(),
		Elapsed:    n.launcher.now().Sub(n.started),
	}
}
