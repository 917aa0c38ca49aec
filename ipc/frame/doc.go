// Package frame defines the wire format of the dIPC protocol: every message
// is one frame, a fixed 24-byte header followed by the raw payload bytes.
// Frame boundaries are entirely length-prefix driven; there is no padding
// and no trailing delimiter.
//
// Header layout (all fields big endian):
//
//	cookie  uint64  protocol-integrity cookie, constant per deployment
//	type    int64   application-defined message-type code
//	length  uint64  payload byte count
//
// The package also defines the protocol-level error types: a cookie that
// does not match the configured value (CookieMismatchError) and a declared
// payload length exceeding the configured limit (OversizeError).
package frame
