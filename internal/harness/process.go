package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// ExitStatus is the raw status the operating system reported for the daemon.
type ExitStatus struct {
	// Code is the exit code, or -1 when the process was terminated by a signal.
	Code int
	// Signal is the terminating signal, zero for a normal exit.
	Signal syscall.Signal
	// State is the underlying process state when the process was spawned by
	// the default spawner.
	State *os.ProcessState
}

// Success reports a zero exit code without a signal.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == 0
}

// Signaled reports whether a signal terminated the process.
func (s ExitStatus) Signaled() bool {
	return s.Signal != 0
}

func (s ExitStatus) String() string {
	if s.Signaled() {
		return "signal: " + s.Signal.String()
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

func statusFromState(state *os.ProcessState) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1}
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitStatus{Code: -1, Signal: ws.Signal(), State: state}
	}
	return ExitStatus{Code: state.ExitCode(), State: state}
}

// Process is a spawned daemon.
type Process interface {
	PID() int
	// Exited reports the exit status without blocking; ok is false while the
	// process is still running.
	Exited() (status ExitStatus, ok bool)
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// Wait blocks until the process exits.
	Wait() (ExitStatus, error)
	// Kill sends SIGKILL. Killing an exited process is a no-op.
	Kill() error
}

// SpawnRequest describes one daemon invocation.
type SpawnRequest struct {
	Executable string
	Args       []string
	// Stdout receives daemon output; nil discards it.
	Stdout io.Writer
}

// Spawner starts daemon processes.
type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (Process, error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(ctx context.Context, req SpawnRequest) (Process, error)

func (f SpawnerFunc) Spawn(ctx context.Context, req SpawnRequest) (Process, error) {
	return f(ctx, req)
}

// ExecSpawner starts processes with os/exec. Stdin is /dev/null and stderr
// is inherited from the harness.
type ExecSpawner struct{}

func (ExecSpawner) Spawn(_ context.Context, req SpawnRequest) (Process, error) {
	// The child outlives ctx; teardown is driven by Node.Close.
	cmd := exec.Command(req.Executable, req.Args...)
	cmd.Stdout = req.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go p.reap()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}

	// status and waitErr are written before done is closed.
	status  ExitStatus
	waitErr error
}

func (p *execProcess) reap() {
	err := p.cmd.Wait()
	p.status = statusFromState(p.cmd.ProcessState)
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		p.waitErr = err
	}
	close(p.done)
}

func (p *execProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Exited() (ExitStatus, bool) {
	select {
	case <-p.done:
		return p.status, true
	default:
		return ExitStatus{}, false
	}
}

func (p *execProcess) Done() <-chan struct{} {
	return p.done
}

func (p *execProcess) Wait() (ExitStatus, error) {
	<-p.done
	return p.status, p.waitErr
}

func (p *execProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pid %d: %w", p.PID(), err)
	}
	return nil
}
