//go:build windows

package daemon

import (
	"fmt"
	"log"
)

// setSocketOwnership is a no-op stub on Windows, which has no POSIX
// group/mode model for a named pipe. The daemon is not deployed on
// Windows (see peercred_other.go); this exists only so the package
// compiles there for tooling purposes.
func setSocketOwnership(_, _ string, _ *log.Logger) error {
	return fmt.Errorf("socket ownership is not applicable on windows")
}
