//go:build !windows

package daemon

import (
	"fmt"
	"log"
	"os"
	"os/user"
	"strconv"
)

// setSocketOwnership sets the socket's group ownership and mode 0660
// per spec.md §4.6 step 4. If groupName does not exist on the host,
// ownership stays root-only and the caller logs a WARNING (this
// function returns an error for that case so Serve can do the
// logging uniformly).
func setSocketOwnership(path, groupName string, logger *log.Logger) error {
	if err := os.Chmod(path, 0o660); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	grp, err := user.LookupGroup(groupName)
	if err != nil {
		return fmt.Errorf("group %q not found, socket stays root-only: %w", groupName, err)
	}
	gid, err := strconv.Atoi(grp.Gid)
	if err != nil {
		return fmt.Errorf("parse gid: %w", err)
	}
	if err := os.Chown(path, -1, gid); err != nil {
		return fmt.Errorf("chown socket: %w", err)
	}
	logger.Printf("socket ownership set: group=%s gid=%d mode=0660", groupName, gid)
	return nil
}
