// Package registry keeps the server-side collection of peer connections,
// one per attached client process, keyed by whatever identity the owner's
// registration protocol assigns. It owns the periodic liveness sweep that
// probes all peers for silent disconnects and evicts the dead ones.
//
// The registry never interprets messages; it only tracks connection
// lifetime. Eviction closes the peer's socket, which in turn makes its read
// loop deliver the connection-error callback.
package registry
