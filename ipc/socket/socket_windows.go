//go:build windows

package socket

import (
	"golang.org/x/sys/windows"
)

// setCloseOnExec is a no-op on windows: socket handles are not inherited
// across CreateProcess by default.
func setCloseOnExec(fd uintptr) {}

func setNonblock(fd uintptr, nonblocking bool) error {
	return windows.SetNonblock(windows.Handle(fd), nonblocking)
}
