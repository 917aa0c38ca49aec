//go:build windows

package conn

// Non-destructive peeking is not supported on windows; every peer reports
// as connected and callers must rely on read-loop errors instead.
func peerDisconnected(p *PeerConnection) bool {
	return false
}
