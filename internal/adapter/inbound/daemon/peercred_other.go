//go:build !linux

package daemon

import (
	"fmt"
	"net"
)

// peerCredentials is unimplemented outside Linux: SO_PEERCRED is a
// Linux-specific getsockopt; macOS's LOCAL_PEERCRED and Windows have no
// equivalent kernel-credential lookup on a stream socket. The daemon is
// a Linux-only component per spec.md's non-goals (no multi-host, no
// auth beyond kernel peer credentials).
func peerCredentials(_ net.Conn) (uid, pid int, err error) {
	return 0, 0, fmt.Errorf("peer credential lookup is only supported on linux")
}
