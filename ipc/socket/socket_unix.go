//go:build !windows

package socket

import (
	"golang.org/x/sys/unix"
)

// setCloseOnExec marks the descriptor close-on-exec so child processes
// spawned by the owner never inherit it.
func setCloseOnExec(fd uintptr) {
	unix.CloseOnExec(int(fd))
}

func setNonblock(fd uintptr, nonblocking bool) error {
	return unix.SetNonblock(int(fd), nonblocking)
}
