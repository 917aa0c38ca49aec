package conn

// CheckForClientDisconnects reports, index-aligned with the input, which
// peers have closed their end of the connection without leaving data
// pending. It peeks at the socket without consuming anything, so it is safe
// to run concurrently with the peers' read loops.
//
// The probe is a liveness hint, never the sole disconnect-detection
// mechanism: on platforms (or connection types) where peeking is
// unavailable every entry is false, indistinguishable from "connected".
func CheckForClientDisconnects(peers []*PeerConnection) []bool {
	disconnected := make([]bool, len(peers))
	for i, p := range peers {
		disconnected[i] = peerDisconnected(p)
	}
	return disconnected
}
