package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// TempRootEnv overrides the default temporary root, e.g. to place node state
// on a ramdisk.
const TempRootEnv = "TEMPDIR_ROOT"

const (
	tempPattern  = "lightningd-"
	lockFileName = ".lnharness.lock"
)

var (
	// ErrConflictingDirectories is returned when both a temporary and a
	// persistent root are supplied.
	ErrConflictingDirectories = errors.New("temporary and persistent directories cannot both be set")
	// ErrDirectoryLocked is returned when another harness holds a persistent directory.
	ErrDirectoryLocked = errors.New("persistent directory is in use by another harness")
)

// Kind tags how a Dir is cleaned up.
type Kind int

const (
	Temporary Kind = iota
	Persistent
)

func (k Kind) String() string {
	switch k {
	case Temporary:
		return "temporary"
	case Persistent:
		return "persistent"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Dir is a materialized work directory.
type Dir struct {
	kind Kind
	path string
	lock *flock.Flock

	closeOnce sync.Once
	closeErr  error
}

// Materialize resolves the work directory from the two optional roots. Empty
// strings mean unset.
func Materialize(tmpRoot, staticRoot string) (*Dir, error) {
	tmpRoot = strings.TrimSpace(tmpRoot)
	staticRoot = strings.TrimSpace(staticRoot)

	switch {
	case tmpRoot != "" && staticRoot != "":
		return nil, ErrConflictingDirectories
	case staticRoot != "":
		return openPersistent(staticRoot)
	case tmpRoot != "":
		return newTemporary(tmpRoot)
	default:
		return newTemporary(DefaultTempRoot())
	}
}

// DefaultTempRoot returns $TEMPDIR_ROOT when set, otherwise the OS temp dir.
func DefaultTempRoot() string {
	if root := strings.TrimSpace(os.Getenv(TempRootEnv)); root != "" {
		return root
	}
	return os.TempDir()
}

func newTemporary(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create temporary root %q: %w", root, err)
	}
	path, err := os.MkdirTemp(root, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("create temporary directory under %q: %w", root, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, fmt.Errorf("resolve temporary directory: %w", err)
	}
	return &Dir{kind: Temporary, path: abs}, nil
}

func openPersistent(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve persistent directory %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create persistent directory %q: %w", abs, err)
	}
	lock := flock.New(filepath.Join(abs, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock persistent directory %q: %w", abs, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryLocked, abs)
	}
	return &Dir{kind: Persistent, path: abs, lock: lock}, nil
}

// Path returns the absolute directory path.
func (d *Dir) Path() string {
	return d.path
}

// Kind reports whether the directory is temporary or persistent.
func (d *Dir) Kind() Kind {
	return d.kind
}

// Persistent reports whether the directory survives Close.
func (d *Dir) Persistent() bool {
	return d.kind == Persistent
}

// Close releases the directory: temporary trees are removed, persistent ones
// are unlocked and kept. Safe to call more than once.
func (d *Dir) Close() error {
	if d == nil {
		return nil
	}
	d.closeOnce.Do(func() {
		switch d.kind {
		case Temporary:
			if err := os.RemoveAll(d.path); err != nil {
				d.closeErr = fmt.Errorf("remove temporary directory %q: %w", d.path, err)
			}
		case Persistent:
			if d.lock != nil {
				if err := d.lock.Unlock(); err != nil {
					d.closeErr = fmt.Errorf("unlock persistent directory %q: %w", d.path, err)
				}
			}
		}
	})
	return d.closeErr
}

func (d *Dir) String() string {
	return d.kind.String() + ":" + d.path
}
