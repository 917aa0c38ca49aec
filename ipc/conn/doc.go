// Package conn implements the connection layer of dIPC: typed,
// length-prefixed binary frames exchanged between a long-lived server
// process and the client processes attached to it over a local stream
// socket.
//
// Key Components:
//
//   - Connection: one end of one socket. Exposes blocking WriteMessage and
//     ReadMessage, plus WriteMessageAsync, which appends to a FIFO queue
//     flushed by at most one in-flight scatter write at a time. All async
//     writes on one Connection reach the peer in enqueue order; completion
//     handlers fire in the same order, after the bytes were transmitted.
//
//   - PeerConnection: a Connection plus the server-side read loop. The
//     injected message handler is invoked synchronously for every fully
//     received frame, so handling for one peer is serialized; a read error
//     is delivered exactly once to the injected error handler and ends the
//     loop. Every frame's cookie is validated: a mismatch from a registered
//     peer aborts the process, a mismatch from an unidentified peer is
//     logged and the frame dropped.
//
//   - CheckForClientDisconnects: a non-destructive liveness probe over a
//     set of PeerConnections, reporting which remote ends have closed
//     without sending data.
//
// Concurrency contract: each Connection has one write-side executor (the
// flush goroutine) and, for PeerConnections, one read-side executor (the
// goroutine running ProcessMessages). The two never block each other, but
// the blocking WriteMessage/ReadMessage primitives must not be called from
// the goroutine that drives the async machinery of the same Connection.
package conn
