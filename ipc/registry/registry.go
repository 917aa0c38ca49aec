package registry

import (
	"time"

	"github.com/ValentinKolb/dIPC/ipc/conn"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("ipc/registry")

// Registry is a concurrency-safe collection of peer connections keyed by
// peer identity.
type Registry struct {
	peers *xsync.MapOf[string, *conn.PeerConnection]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		peers: xsync.NewMapOf[string, *conn.PeerConnection](),
	}
}

// Add stores a peer under the given identity. A previously stored peer
// under the same identity is closed and replaced.
func (r *Registry) Add(id string, p *conn.PeerConnection) {
	if prev, loaded := r.peers.LoadAndStore(id, p); loaded && prev != p {
		Logger.Warningf("peer %s replaced, closing stale connection", id)
		_ = prev.Close()
	}
}

// Remove deletes and returns the peer stored under id, if any. The peer is
// not closed; that is the caller's decision.
func (r *Registry) Remove(id string) (*conn.PeerConnection, bool) {
	return r.peers.LoadAndDelete(id)
}

// Get returns the peer stored under id, if any.
func (r *Registry) Get(id string) (*conn.PeerConnection, bool) {
	return r.peers.Load(id)
}

// Len returns the number of stored peers.
func (r *Registry) Len() int {
	return r.peers.Size()
}

// Snapshot returns a point-in-time view of the registry as two index-aligned
// slices.
func (r *Registry) Snapshot() ([]string, []*conn.PeerConnection) {
	ids := make([]string, 0, r.peers.Size())
	peers := make([]*conn.PeerConnection, 0, r.peers.Size())
	r.peers.Range(func(id string, p *conn.PeerConnection) bool {
		ids = append(ids, id)
		peers = append(peers, p)
		return true
	})
	return ids, peers
}

// SweepDisconnected probes every stored peer and evicts those whose remote
// end has closed without pending data. Evicted peers are closed and, if
// onDisconnect is non-nil, reported to it. Returns the number of evictions.
func (r *Registry) SweepDisconnected(onDisconnect func(id string, p *conn.PeerConnection)) int {
	ids, peers := r.Snapshot()
	disconnected := conn.CheckForClientDisconnects(peers)

	evicted := 0
	for i, dead := range disconnected {
		if !dead {
			continue
		}
		// Guard against a concurrent Remove/Add between snapshot and now.
		if p, ok := r.peers.LoadAndDelete(ids[i]); ok && p == peers[i] {
			_ = p.Close()
			if onDisconnect != nil {
				onDisconnect(ids[i], p)
			}
			evicted++
		}
	}

	if evicted > 0 {
		Logger.Infof("liveness sweep evicted %d disconnected peer(s), %d remaining", evicted, r.Len())
	}
	return evicted
}

// RunSweeper runs SweepDisconnected every interval until stopCh is closed.
// It blocks and is meant to be run on its own goroutine.
func (r *Registry) RunSweeper(interval time.Duration, stopCh <-chan struct{}, onDisconnect func(id string, p *conn.PeerConnection)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			r.SweepDisconnected(onDisconnect)
		}
	}
}
