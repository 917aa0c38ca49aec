package frame

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size in bytes of the frame header.
const HeaderSize = 24

// Header is the fixed-size prefix of every frame.
type Header struct {
	// Cookie is the protocol-integrity cookie.
	Cookie uint64
	// Type is the application-defined message-type code.
	Type int64
	// Length is the payload byte count.
	Length uint64
}

// Append serializes the header and appends it to buf, returning the
// extended slice.
func (h Header) Append(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint64(buf, h.Cookie)
	buf = binary.BigEndian.AppendUint64(buf, uint64(h.Type))
	buf = binary.BigEndian.AppendUint64(buf, h.Length)
	return buf
}

// ParseHeader decodes a header from buf. The slice must hold at least
// HeaderSize bytes.
func ParseHeader(buf []byte) Header {
	return Header{
		Cookie: binary.BigEndian.Uint64(buf[0:8]),
		Type:   int64(binary.BigEndian.Uint64(buf[8:16])),
		Length: binary.BigEndian.Uint64(buf[16:24]),
	}
}

// --------------------------------------------------------------------------
// Protocol errors
// --------------------------------------------------------------------------

// CookieMismatchError reports a frame whose cookie does not match the
// configured cookie, meaning the peer speaks a different protocol version.
type CookieMismatchError struct {
	// Want is the locally configured cookie.
	Want uint64
	// Got is the cookie received in the frame header.
	Got uint64
	// Endpoint describes the remote end, if known (empty for local sockets).
	Endpoint string
}

func (e *CookieMismatchError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("frame: cookie mismatch: expected %#016x, got %#016x", e.Want, e.Got)
	}
	return fmt.Sprintf("frame: cookie mismatch from %s: expected %#016x, got %#016x", e.Endpoint, e.Want, e.Got)
}

// OversizeError reports a frame whose declared payload length exceeds the
// configured maximum. Acting on such a length would mean an unbounded
// allocation, so it is rejected before any payload is read.
type OversizeError struct {
	// Length is the declared payload length.
	Length uint64
	// Limit is the configured maximum.
	Limit uint64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("frame: declared payload length %d exceeds limit %d", e.Length, e.Limit)
}
