//go:build !windows

package conn

import (
	"golang.org/x/sys/unix"
)

// peerDisconnected peeks one byte off the socket without consuming it.
// Only a clean EOF with no data pending (recvfrom returning zero bytes and
// no error) counts as disconnected; data pending, EAGAIN and every error
// report false.
func peerDisconnected(p *PeerConnection) bool {
	var closed bool
	err := p.Socket().Control(func(fd uintptr) {
		var buf [1]byte
		n, _, err := unix.Recvfrom(int(fd), buf[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
		closed = err == nil && n == 0
	})
	if err != nil {
		// No raw descriptor (or control failed): probing unsupported.
		return false
	}
	return closed
}
