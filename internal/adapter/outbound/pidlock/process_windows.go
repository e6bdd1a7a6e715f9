//go:build windows

package pidlock

import "os"

// processAlive reports whether pid names a live process. The daemon
// itself is Unix-only (SO_PEERCRED has no Windows equivalent); this
// exists only to keep the package buildable for the cross-platform CLI,
// where os.FindProcess opening a handle is enough of a liveness check.
func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
