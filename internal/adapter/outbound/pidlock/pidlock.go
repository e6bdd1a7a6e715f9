// Package pidlock manages the privileged daemon's exclusive ownership of
// its PID file and socket path (spec.md §3's Ownership section: "the
// daemon exclusively owns the listening socket and PID file"). It
// reuses the teacher's flock-plus-atomic-write pattern for the PID
// file itself, and adds the stale-PID detection spec.md §9 calls for:
// "if the daemon dies uncleanly, the next start explicitly removes
// stale files after confirming the PID in the PID file is not alive."
package pidlock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrAlreadyRunning is returned by Acquire when a live process already
// holds the PID file.
var ErrAlreadyRunning = errors.New("daemon already running")

// Lock represents the daemon's held PID file. Release must be called
// on shutdown to remove the PID file (and, by the caller, the socket).
type Lock struct {
	pidPath  string
	lockFile *os.File
}

// Acquire claims pidPath for the current process. If an existing PID
// file names a process that is still alive, ErrAlreadyRunning is
// returned. A PID file naming a dead process is treated as stale and
// removed before the new PID is written.
func Acquire(pidPath string) (*Lock, error) {
	lockPath := pidPath + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open pid lock file: %w", err)
	}
	if err := flockLock(lockFile.Fd()); err != nil {
		_ = lockFile.Close()
		return nil, fmt.Errorf("acquire pid lock: %w", err)
	}

	if existing, ok := readPID(pidPath); ok {
		if processAlive(existing) {
			flockUnlock(lockFile.Fd()) //nolint:errcheck
			_ = lockFile.Close()
			return nil, fmt.Errorf("%w: pid %d", ErrAlreadyRunning, existing)
		}
		// Stale PID file from an unclean shutdown; remove before proceeding.
		_ = os.Remove(pidPath)
	}

	if err := writePID(pidPath, os.Getpid()); err != nil {
		flockUnlock(lockFile.Fd()) //nolint:errcheck
		_ = lockFile.Close()
		return nil, err
	}

	return &Lock{pidPath: pidPath, lockFile: lockFile}, nil
}

// Release removes the PID file and releases the underlying flock. It
// does not remove the socket; callers own that separately in the
// shutdown path.
func (l *Lock) Release() error {
	err := os.Remove(l.pidPath)
	flockUnlock(l.lockFile.Fd()) //nolint:errcheck
	_ = l.lockFile.Close()
	_ = os.Remove(l.pidPath + ".lock")
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// readPID reads and parses an existing PID file. ok is false if the
// file is absent or unparseable.
func readPID(pidPath string) (pid int, ok bool) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return n, true
}

// writePID writes pid to pidPath atomically: tmp file, fsync, rename.
func writePID(pidPath string, pid int) error {
	tmpPath := pidPath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create pid temp file: %w", err)
	}
	if _, err := f.WriteString(strconv.Itoa(pid)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write pid temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fsync pid temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close pid temp file: %w", err)
	}
	if err := os.Rename(tmpPath, pidPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename pid temp file: %w", err)
	}
	return nil
}
