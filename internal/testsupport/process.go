package testsupport

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ProcessRunning reports whether pid names a live process. Reaped processes
// report false.
func ProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// EmptyDir reports whether dir exists and holds no entries.
func EmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
