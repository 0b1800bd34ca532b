package harness

import (
	"errors"
	"fmt"

	"lnharness/internal/workdir"
)

var (
	// ErrConflictingDirectories is returned when both TmpDir and StaticDir are set.
	ErrConflictingDirectories = workdir.ErrConflictingDirectories
	// ErrInvalidArgument matches *InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSpawnFailed matches *SpawnError.
	ErrSpawnFailed = errors.New("spawn failed")
	// ErrEarlyExit matches *EarlyExitError.
	ErrEarlyExit = errors.New("process exited before becoming ready")
	// ErrRetryExhausted matches *EarlyExitError: the attempt budget was spent.
	ErrRetryExhausted = errors.New("launch attempts exhausted")
	// ErrReadyTimeout is returned when Conf.ReadyTimeout elapses.
	ErrReadyTimeout = errors.New("timed out waiting for readiness")
	// ErrAlreadyStopped is returned by Stop after a previous Stop or Close.
	ErrAlreadyStopped = errors.New("node already stopped")
)

// InvalidArgumentError reports a rejected configuration argument.
type InvalidArgumentError struct {
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// SpawnError reports that the executable could not be started.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

func (e *SpawnError) Is(target error) bool {
	return target == ErrSpawnFailed
}

// EarlyExitError reports the last exit status once no attempts remain.
type EarlyExitError struct {
	Status   ExitStatus
	Attempts int
}

func (e *EarlyExitError) Error() string {
	return fmt.Sprintf("lightningd exited early with %s after %d attempt(s)", e.Status, e.Attempts)
}

func (e *EarlyExitError) Is(target error) bool {
	return target == ErrEarlyExit || target == ErrRetryExhausted
}
