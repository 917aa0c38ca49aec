// Package socket wraps a single connected stream socket (a unix domain
// socket or the platform equivalent) with the primitive operations the
// connection layer is built on: one-shot scatter writes, gather reads that
// fill every supplied range completely, descriptor-level controls
// (non-blocking mode, close-on-exec) and an idempotent close.
//
// A Socket exclusively owns its net.Conn; closing the Socket closes the
// descriptor. Construction marks the descriptor close-on-exec where the
// platform supports it so spawned child processes never inherit it.
//
// The package also provides Dial and DialRetry, the connect-with-backoff
// helpers used to obtain an already-connected socket. The connection layer
// itself never initiates outbound connection attempts.
package socket
