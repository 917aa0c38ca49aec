package conn

import (
	"os"
	"strconv"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/frame"
	"github.com/ValentinKolb/dIPC/ipc/socket"
)

// MessageHandler is invoked by the read loop for every fully received,
// correctly-cookied frame. It runs synchronously on the peer's read
// goroutine: the next frame is not read before the handler returns, so all
// handling for one peer is serialized (and a slow handler throttles only
// that peer). The payload slice is reused by the loop and is only valid for
// the duration of the call.
type MessageHandler func(p *PeerConnection, msgType int64, payload []byte)

// ErrorHandler is invoked exactly once when the read loop stops on an
// error. The owner is responsible for removing the peer from its
// collection; no further reads are issued on the connection.
type ErrorHandler func(p *PeerConnection, err error)

// fatalf terminates the process. A cookie mismatch from a registered peer
// means protocol or version corruption that cannot be safely continued, so
// the process must not keep running. Swappable so tests can observe the
// fatal path instead of dying.
var fatalf = func(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
	os.Exit(1)
}

// PeerConnection is the object a server keeps per connected peer: a
// Connection plus an asynchronous read loop, cookie validation and the
// registration handshake bookkeeping.
type PeerConnection struct {
	*Connection

	messageHandler MessageHandler
	errorHandler   ErrorHandler

	// debugLabel identifies the kind of peer in log output.
	debugLabel string
	// typeNames maps message-type codes to printable names, for log output.
	typeNames []string

	// registered is one-way: set by Register, never cleared.
	registered bool

	// readBuf accumulates the payload of the frame currently being read.
	// It is grown as needed and reused across frames.
	readBuf []byte
}

// NewPeer creates a PeerConnection over an already-connected socket. Both
// handlers are required; typeNames is optional diagnostics metadata. The
// read loop is not started until ProcessMessages is called.
func NewPeer(
	cfg common.Config,
	sock *socket.Socket,
	messageHandler MessageHandler,
	errorHandler ErrorHandler,
	debugLabel string,
	typeNames []string,
) *PeerConnection {
	if messageHandler == nil {
		panic("conn: NewPeer requires a message handler")
	}
	if errorHandler == nil {
		panic("conn: NewPeer requires an error handler")
	}
	return &PeerConnection{
		Connection:     New(cfg, sock),
		messageHandler: messageHandler,
		errorHandler:   errorHandler,
		debugLabel:     debugLabel,
		typeNames:      typeNames,
	}
}

// Register marks the peer as having completed its registration handshake.
// The handshake message itself flows through the message handler like any
// other frame; this is only the bookkeeping transition. One-way: there is
// no path back to unregistered.
func (p *PeerConnection) Register() {
	p.mu.Lock()
	p.registered = true
	p.mu.Unlock()
}

// Registered reports whether Register has been called.
func (p *PeerConnection) Registered() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registered
}

// DebugLabel returns the label used for this peer in log output.
func (p *PeerConnection) DebugLabel() string {
	return p.debugLabel
}

// ProcessMessages runs the read loop until the connection fails or is
// closed. It blocks and is meant to be run on its own goroutine, which
// becomes the read-side executor of this peer: exactly one read is
// outstanding at any time, and the message handler runs to completion
// before the next header read is issued.
func (p *PeerConnection) ProcessMessages() {
	var hbuf [frame.HeaderSize]byte
	for {
		if err := p.sock.ReadBuffer(hbuf[:]); err != nil {
			p.errorHandler(p, err)
			return
		}
		header := frame.ParseHeader(hbuf[:])
		p.bytesRead.Add(frame.HeaderSize)
		metricBytesRead.Add(frame.HeaderSize)

		cookieOK := header.Cookie == p.cfg.Cookie
		if !cookieOK {
			mismatch := &frame.CookieMismatchError{
				Want:     p.cfg.Cookie,
				Got:      header.Cookie,
				Endpoint: p.RemoteEndpointInfo(),
			}
			if p.Registered() {
				fatalf("%s: fatal protocol corruption on registered peer: %v", p.debugLabel, mismatch)
				return
			}
			// Not yet identified: could be a stale or foreign process
			// probing the socket. Drop the frame and keep listening.
			Logger.Warningf("%s: dropping frame from unidentified peer: %v", p.debugLabel, mismatch)
		}

		if header.Length > p.cfg.MaxMessageSize {
			p.errorHandler(p, &frame.OversizeError{Length: header.Length, Limit: p.cfg.MaxMessageSize})
			return
		}

		if uint64(cap(p.readBuf)) < header.Length {
			p.readBuf = make([]byte, header.Length)
		}
		payload := p.readBuf[:header.Length]
		if err := p.sock.ReadBuffer(payload); err != nil {
			p.errorHandler(p, err)
			return
		}
		p.bytesRead.Add(int64(header.Length))
		metricBytesRead.Add(int(header.Length))

		if !cookieOK {
			// Frame consumed to stay aligned with the stream, not dispatched.
			continue
		}

		Logger.Debugf("%s: received %s (%d bytes)", p.debugLabel, p.typeName(header.Type), header.Length)
		p.messageHandler(p, header.Type, payload)
	}
}

// RemoteEndpointInfo returns host/port information for the remote endpoint.
// For local (unix domain) connections it returns an empty string.
func (p *PeerConnection) RemoteEndpointInfo() string {
	addr := p.sock.Conn().RemoteAddr()
	if addr == nil {
		return ""
	}
	switch addr.Network() {
	case "unix", "unixgram", "unixpacket":
		return ""
	}
	return addr.String()
}

// typeName resolves a message-type code to its printable name, falling back
// to the numeric code when no table was supplied.
func (p *PeerConnection) typeName(msgType int64) string {
	if msgType >= 0 && msgType < int64(len(p.typeNames)) {
		return p.typeNames[msgType]
	}
	return "type " + strconv.FormatInt(msgType, 10)
}
