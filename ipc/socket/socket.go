package socket

import (
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("ipc/socket")

// ErrNotSupported is returned by descriptor-level operations when the
// underlying connection does not expose a raw file descriptor (for example
// an in-memory pipe in tests).
var ErrNotSupported = errors.New("socket: operation not supported by the underlying connection")

// Socket wraps one connected stream socket. It exclusively owns the
// underlying connection: closing the Socket closes the descriptor, and the
// Socket never reopens a closed descriptor.
type Socket struct {
	conn net.Conn

	closeOnce sync.Once
	closeErr  error
}

// New wraps an already-connected stream socket. The descriptor is marked
// close-on-exec where the platform supports it (a no-op elsewhere).
func New(conn net.Conn) *Socket {
	s := &Socket{conn: conn}
	if err := s.Control(setCloseOnExec); err != nil && !errors.Is(err, ErrNotSupported) {
		Logger.Warningf("failed to set close-on-exec: %v", err)
	}
	return s
}

// Conn returns the underlying connection. The Socket retains ownership.
func (s *Socket) Conn() net.Conn {
	return s.conn
}

// WriteBuffer performs a single scatter write of all ranges in order. It
// succeeds only if every byte was written; any short write or OS error is
// returned to the caller.
func (s *Socket) WriteBuffer(bufs net.Buffers) error {
	if _, err := bufs.WriteTo(s.conn); err != nil {
		return err
	}
	return nil
}

// ReadBuffer performs a gather read that fills every supplied range
// completely or fails. A clean EOF before the first byte is reported as
// io.EOF; an EOF mid-range as io.ErrUnexpectedEOF.
func (s *Socket) ReadBuffer(bufs ...[]byte) error {
	for _, buf := range bufs {
		if len(buf) == 0 {
			continue
		}
		if _, err := io.ReadFull(s.conn, buf); err != nil {
			return err
		}
	}
	return nil
}

// SetNonBlocking sets the blocking mode of the raw descriptor.
func (s *Socket) SetNonBlocking(nonblocking bool) error {
	var opErr error
	err := s.Control(func(fd uintptr) {
		opErr = setNonblock(fd, nonblocking)
	})
	if err != nil {
		return err
	}
	return opErr
}

// Control runs f with the raw file descriptor. It returns ErrNotSupported
// when the connection does not expose one. The descriptor remains valid
// only for the duration of the call.
func (s *Socket) Control(f func(fd uintptr)) error {
	sc, ok := s.conn.(syscall.Conn)
	if !ok {
		return ErrNotSupported
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	return raw.Control(f)
}

// Close closes the underlying connection. It is idempotent and safe to call
// from any goroutine; concurrent reads and writes blocked on the socket
// resolve with an error rather than hang.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
