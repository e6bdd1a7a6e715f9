//go:build linux

package daemon

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// peerCredentials retrieves the connecting process's uid and pid from
// the kernel via SO_PEERCRED, the daemon's sole authentication
// mechanism (spec.md §6.1).
func peerCredentials(conn net.Conn) (uid, pid int, err error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return 0, 0, fmt.Errorf("connection is not a unix socket")
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return 0, 0, fmt.Errorf("get raw conn: %w", err)
	}

	var cred *unix.Ucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		cred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("control raw conn: %w", err)
	}
	if sockErr != nil {
		return 0, 0, fmt.Errorf("getsockopt SO_PEERCRED: %w", sockErr)
	}
	return int(cred.Uid), int(cred.Pid), nil
}
