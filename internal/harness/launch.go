package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"lnharness/internal/lnrpc"
	"lnharness/internal/logging"
	"lnharness/internal/workdir"
)

// New launches exe with DefaultConf.
func New(ctx context.Context, exe string, opts ...Option) (*Node, error) {
	return Launch(ctx, exe, DefaultConf(), opts...)
}

// Launch starts exe under conf and blocks until the control socket answers
// getinfo. Early exits are retried up to conf.Attempts times, each with a
// fresh work directory. Cancelling ctx aborts the wait and tears the attempt
// down; ctx does not bound the lifetime of the returned Node.
func Launch(ctx context.Context, exe string, conf Conf, opts ...Option) (*Node, error) {
	l := newLauncher(opts)
	conf = conf.normalized()

	if conf.TmpDir != "" && conf.StaticDir != "" {
		return nil, ErrConflictingDirectories
	}
	args, err := ValidateArgs(conf.Args)
	if err != nil {
		return nil, err
	}

	launchID := uuid.NewString()
	logger := logging.NewComponentLogger(l.logger, "harness").With(logging.String(logging.FieldLaunchID, launchID))
	var deadline time.Time
	if conf.ReadyTimeout > 0 {
		deadline = l.now().Add(conf.ReadyTimeout)
	}

	remaining := conf.Attempts
	for attempt := 1; ; attempt++ {
		node, err := l.attempt(ctx, attemptSpec{
			exe:      exe,
			conf:     conf,
			args:     args,
			launchID: launchID,
			attempt:  attempt,
			deadline: deadline,
		}, logger)
		if err == nil {
			return node, nil
		}
		var exitErr *EarlyExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
		exitErr.Attempts = attempt
		if remaining == 0 {
			logging.ErrorWithContext(logger, "lightningd exited before becoming ready; no attempts remain", "launch_exhausted",
				logging.Int(logging.FieldAttempt, attempt),
				logging.String("status", exitErr.Status.String()),
				logging.String(logging.FieldErrorHint, "run lightningd by hand with the same arguments and inspect its stderr"),
			)
			return nil, exitErr
		}
		remaining--
		logging.WarnWithContext(logger, "lightningd exited before becoming ready; relaunching", "launch_retry",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int("remaining", remaining),
			logging.String("status", exitErr.Status.String()),
			logging.String(logging.FieldErrorHint, "a port may have been taken between allocation and bind"),
			logging.String(logging.FieldImpact, "launch continues with a fresh work directory"),
		)
	}
}

type attemptSpec struct {
	exe      string
	conf     Conf
	args     []string
	launchID string
	attempt  int
	deadline time.Time
}

type orphan struct {
	process Process
	dir     *workdir.Dir
}

func releaseOrphan(o orphan) {
	_ = o.process.Kill()
	_ = o.dir.Close()
}

func (l *launcher) attempt(ctx context.Context, spec attemptSpec, logger *slog.Logger) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conf := spec.conf

	dir, err := workdir.Materialize(conf.TmpDir, conf.StaticDir)
	if err != nil {
		return nil, fmt.Errorf("materialize work directory: %w", err)
	}
	logger = logger.With(
		logging.Int(logging.FieldAttempt, spec.attempt),
		logging.String(logging.FieldWorkDir, dir.Path()),
	)
	base := Event{
		LaunchID:   spec.launchID,
		Attempt:    spec.attempt,
		WorkDir:    dir.Path(),
		Persistent: dir.Persistent(),
	}

	req := SpawnRequest{
		Executable: spec.exe,
		Args:       append([]string{"--lightning-dir=" + dir.Path()}, spec.args...),
	}
	if conf.ViewStdout {
		req.Stdout = conf.Stdout
		if req.Stdout == nil {
			req.Stdout = os.Stdout
		}
	}
	logger.Debug("spawning lightningd", logging.String("executable", spec.exe), logging.Strings("args", req.Args))

	proc, err := l.spawner.Spawn(ctx, req)
	if err != nil {
		if closeErr := dir.Close(); closeErr != nil {
			logger.Warn("release work directory failed", logging.Error(closeErr))
		}
		ev := base
		ev.Kind = EventSpawnFailed
		ev.Err = err
		l.emit(ev)
		logging.ErrorWithContext(logger, "spawn lightningd failed", "spawn_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the executable exists and is runnable"),
		)
		return nil, &SpawnError{Executable: spec.exe, Err: err}
	}

	start := l.now()
	base.PID = proc.PID()
	node := &Node{
		launchID:  spec.launchID,
		attempt:   spec.attempt,
		network:   conf.Network,
		process:   proc,
		dir:       dir,
		rpcPath:   filepath.Join(dir.Path(), conf.Network, lnrpc.SocketName),
		stopGrace: conf.StopGrace,
		logger:    logger.With(logging.Int(logging.FieldPID, proc.PID())),
		launcher:  l,
		started:   start,
	}
	node.cleanup = runtime.AddCleanup(node, releaseOrphan, orphan{process: proc, dir: dir})

	ready := false
	defer func() {
		if ready {
			return
		}
		if err := node.teardown(false); err != nil {
			node.logger.Warn("tear down failed attempt", logging.Error(err))
		}
	}()

	ev := base
	ev.Kind = EventSpawned
	l.emit(ev)
	node.logger.Debug("lightningd spawned", logging.String("rpc_path", node.rpcPath))

	for polls := 1; ; polls++ {
		if status, exited := proc.Exited(); exited {
			ev := base
			ev.Kind = EventEarlyExit
			ev.Status = &status
			ev.Polls = polls
			ev.Elapsed = l.now().Sub(start)
			l.emit(ev)
			node.logger.Info("lightningd exited before becoming ready",
				logging.String("status", status.String()),
				logging.Int("polls", polls),
			)
			return nil, &EarlyExitError{Status: status}
		}

		client, info, err := l.prober.Probe(ctx, node.rpcPath)
		if err == nil {
			node.client = client
			node.info = info
			ready = true
			ev := base
			ev.Kind = EventReady
			ev.Polls = polls
			ev.Elapsed = l.now().Sub(start)
			l.emit(ev)
			node.logger.Info("lightningd ready",
				logging.String(logging.FieldEventType, "node_ready"),
				logging.Int("polls", polls),
				logging.Duration("elapsed", ev.Elapsed),
			)
			return node, nil
		}
		node.logger.Debug("control socket not ready", logging.Int("polls", polls), logging.Error(err))

		if !spec.deadline.IsZero() && !l.now().Before(spec.deadline) {
			ev := base
			ev.Kind = EventReadyTimeout
			ev.Polls = polls
			ev.Elapsed = l.now().Sub(start)
			l.emit(ev)
			logging.ErrorWithContext(node.logger, "lightningd did not become ready in time", "ready_timeout",
				logging.Duration("ready_timeout", conf.ReadyTimeout),
				logging.String(logging.FieldErrorHint, "raise node.ready_timeout_seconds or inspect lightningd stderr"),
			)
			return nil, fmt.Errorf("%w after %s (%d polls)", ErrReadyTimeout, conf.ReadyTimeout, polls)
		}

		timer := time.NewTimer(l.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			ev := base
			ev.Kind = EventCanceled
			ev.Polls = polls
			ev.Elapsed = l.now().Sub(start)
			ev.Err = ctx.Err()
			l.emit(ev)
			return nil, ctx.Err()
		case <-proc.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (l *launcher) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = l.now()
	}
	l.observer.Observe(e)
}
