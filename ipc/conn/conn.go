package conn

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/frame"
	"github.com/ValentinKolb/dIPC/ipc/socket"
	"github.com/VictoriaMetrics/metrics"
	"github.com/eapache/queue"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/valyala/bytebufferpool"
)

var Logger = logger.GetLogger("ipc/conn")

// ErrBrokenPipe is returned (or delivered to completion handlers) for every
// write attempted after a write on the same Connection failed. The flag
// behind it is sticky: once a socket is known dead, no further I/O is
// attempted on its write side.
var ErrBrokenPipe = errors.New("conn: connection is no longer writable")

// Process-wide diagnostics counters, aggregated over all connections.
var (
	metricBytesWritten = metrics.NewCounter("ipc_connection_bytes_written_total")
	metricBytesRead    = metrics.NewCounter("ipc_connection_bytes_read_total")
	metricSyncWrites   = metrics.NewCounter("ipc_connection_sync_writes_total")
	metricAsyncWrites  = metrics.NewCounter("ipc_connection_async_writes_total")
)

// WriteHandler is the completion handler of one asynchronous write. It is
// invoked exactly once, with nil after the write's bytes were transmitted
// or with the write error otherwise, on the connection's flush goroutine
// (or on the enqueueing goroutine when the connection is already broken).
type WriteHandler func(err error)

// pendingWrite is one queued asynchronous write request. The payload is a
// fully-owned copy taken at enqueue time so the caller's buffer can be
// reused immediately.
type pendingWrite struct {
	header  frame.Header
	payload *bytebufferpool.ByteBuffer
	handler WriteHandler
}

// Connection represents one end of one local stream socket. It can be used
// from multiple goroutines; see the package documentation for the
// concurrency contract of the blocking primitives.
type Connection struct {
	cfg  common.Config
	sock *socket.Socket

	mu            sync.Mutex
	writeQueue    *queue.Queue // of *pendingWrite
	writeInFlight bool
	brokenPipe    bool

	// diagnostics
	bytesWritten atomic.Int64
	bytesRead    atomic.Int64
	syncWrites   atomic.Int64
	asyncWrites  atomic.Int64
}

// New creates a Connection over an already-connected socket. The Connection
// takes exclusive ownership of the socket.
func New(cfg common.Config, sock *socket.Socket) *Connection {
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = common.DefaultMaxMessageSize
	}
	if cfg.MaxBatchMessages <= 0 {
		cfg.MaxBatchMessages = common.DefaultMaxBatchMessages
	}
	return &Connection{
		cfg:        cfg,
		sock:       sock,
		writeQueue: queue.New(),
	}
}

// Socket returns the underlying socket. The Connection retains ownership.
func (c *Connection) Socket() *socket.Socket {
	return c.sock
}

// Close closes the underlying socket. Reads and writes already suspended on
// the socket resolve with an error; pending async writes fail through their
// handlers. There is no graceful drain of the pending-write queue.
func (c *Connection) Close() error {
	return c.sock.Close()
}

// --------------------------------------------------------------------------
// Synchronous path
// --------------------------------------------------------------------------

// WriteMessage writes one frame and blocks until every byte was handed to
// the OS. It bypasses the async queue entirely: ordering between
// WriteMessage and concurrently queued async writes is caller-defined.
func (c *Connection) WriteMessage(msgType int64, payload []byte) error {
	c.mu.Lock()
	broken := c.brokenPipe
	c.mu.Unlock()
	if broken {
		return ErrBrokenPipe
	}

	header := frame.Header{
		Cookie: c.cfg.Cookie,
		Type:   msgType,
		Length: uint64(len(payload)),
	}

	bufs := make(net.Buffers, 1, 2)
	bufs[0] = header.Append(make([]byte, 0, frame.HeaderSize))
	if len(payload) > 0 {
		bufs = append(bufs, payload)
	}

	if err := c.sock.WriteBuffer(bufs); err != nil {
		c.markBroken()
		return err
	}

	total := frame.HeaderSize + len(payload)
	c.syncWrites.Add(1)
	c.bytesWritten.Add(int64(total))
	metricSyncWrites.Inc()
	metricBytesWritten.Add(total)
	return nil
}

// ReadMessage blocks until one full frame was read and returns its header
// and payload. It is a primitive: validating the type (and, on the client
// side, the cookie) against expected values is the caller's concern.
func (c *Connection) ReadMessage() (frame.Header, []byte, error) {
	var hbuf [frame.HeaderSize]byte
	if err := c.sock.ReadBuffer(hbuf[:]); err != nil {
		return frame.Header{}, nil, err
	}
	header := frame.ParseHeader(hbuf[:])

	if header.Length > c.cfg.MaxMessageSize {
		return header, nil, &frame.OversizeError{Length: header.Length, Limit: c.cfg.MaxMessageSize}
	}

	payload := make([]byte, header.Length)
	if err := c.sock.ReadBuffer(payload); err != nil {
		return header, nil, err
	}

	total := frame.HeaderSize + len(payload)
	c.bytesRead.Add(int64(total))
	metricBytesRead.Add(total)
	return header, payload, nil
}

// --------------------------------------------------------------------------
// Asynchronous path
// --------------------------------------------------------------------------

// WriteMessageAsync queues one frame for delivery and returns immediately.
// The payload is copied, so the caller may reuse its buffer. All queued
// writes reach the peer in enqueue order regardless of how many call sites
// enqueue concurrently; at most one flush is in flight at a time.
//
// handler may be nil if the caller does not care about completion.
func (c *Connection) WriteMessageAsync(msgType int64, payload []byte, handler WriteHandler) {
	buf := bytebufferpool.Get()
	buf.Set(payload)

	pw := &pendingWrite{
		header: frame.Header{
			Cookie: c.cfg.Cookie,
			Type:   msgType,
			Length: uint64(len(payload)),
		},
		payload: buf,
		handler: handler,
	}

	c.mu.Lock()
	if c.brokenPipe {
		c.mu.Unlock()
		// The socket is known dead: fail without attempting I/O.
		pw.finish(ErrBrokenPipe)
		return
	}
	c.writeQueue.Add(pw)
	start := !c.writeInFlight
	if start {
		c.writeInFlight = true
	}
	c.mu.Unlock()

	if start {
		go c.doAsyncWrites()
	}
}

// doAsyncWrites is the flush loop. It runs on a dedicated goroutine and is
// the only code that removes requests from the queue; the writeInFlight
// flag guarantees at most one instance per Connection.
func (c *Connection) doAsyncWrites() {
	for {
		c.mu.Lock()
		n := c.writeQueue.Length()
		if n == 0 {
			c.writeInFlight = false
			c.mu.Unlock()
			return
		}
		if n > c.cfg.MaxBatchMessages {
			n = c.cfg.MaxBatchMessages
		}
		batch := make([]*pendingWrite, n)
		for i := 0; i < n; i++ {
			batch[i] = c.writeQueue.Remove().(*pendingWrite)
		}
		broken := c.brokenPipe
		c.mu.Unlock()

		if broken {
			failAll(batch, ErrBrokenPipe)
			continue
		}

		// Coalesce the batch into one scatter write, headers and payloads
		// interleaved in queue order.
		headers := make([]byte, 0, n*frame.HeaderSize)
		bufs := make(net.Buffers, 0, 2*n)
		total := 0
		for _, pw := range batch {
			start := len(headers)
			headers = pw.header.Append(headers)
			bufs = append(bufs, headers[start:])
			if pw.payload.Len() > 0 {
				bufs = append(bufs, pw.payload.B)
			}
			total += frame.HeaderSize + pw.payload.Len()
		}

		if err := c.sock.WriteBuffer(bufs); err != nil {
			c.markBroken()
			failAll(batch, err)
			// Keep looping: everything still queued fails the same way.
			continue
		}

		c.asyncWrites.Add(int64(n))
		c.bytesWritten.Add(int64(total))
		metricAsyncWrites.Add(n)
		metricBytesWritten.Add(total)

		for _, pw := range batch {
			pw.finish(nil)
		}
	}
}

// markBroken sets the sticky broken-pipe flag.
func (c *Connection) markBroken() {
	c.mu.Lock()
	c.brokenPipe = true
	c.mu.Unlock()
}

// finish invokes the completion handler exactly once and releases the
// payload copy.
func (pw *pendingWrite) finish(err error) {
	if pw.handler != nil {
		pw.handler(err)
	}
	bytebufferpool.Put(pw.payload)
	pw.payload = nil
}

func failAll(batch []*pendingWrite, err error) {
	for _, pw := range batch {
		pw.finish(err)
	}
}

// --------------------------------------------------------------------------
// Diagnostics
// --------------------------------------------------------------------------

// DebugString summarizes the connection's lifetime counters.
func (c *Connection) DebugString() string {
	c.mu.Lock()
	queued := c.writeQueue.Length()
	broken := c.brokenPipe
	c.mu.Unlock()

	s := fmt.Sprintf("%d async writes, %d sync writes, %d bytes written, %d bytes read, %d queued",
		c.asyncWrites.Load(), c.syncWrites.Load(), c.bytesWritten.Load(), c.bytesRead.Load(), queued)
	if broken {
		s += ", broken pipe"
	}
	return s
}
