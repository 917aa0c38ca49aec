package common

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Connection configuration
// --------------------------------------------------------------------------

const (
	// DefaultCookie is the protocol-integrity cookie embedded in every frame
	// header. Both ends of a connection must agree on it; a mismatch means
	// the peer speaks a different protocol version. It is a lightweight
	// integrity check, not a security credential.
	DefaultCookie uint64 = 0x6449504376310a00 // "dIPCv1\n\0"

	// DefaultMaxMessageSize is the largest payload a connection accepts
	// before treating the declared frame length as a protocol error.
	DefaultMaxMessageSize uint64 = 256 << 20 // 256 MB

	// DefaultMaxBatchMessages is the maximum number of queued async writes
	// coalesced into a single scatter write during one flush.
	DefaultMaxBatchMessages = 128
)

// Config holds the per-connection parameters. The zero value is not usable;
// start from DefaultConfig and override as needed. The cookie is passed
// explicitly rather than read from a process-wide global so that both ends
// of a test harness can be given deliberately mismatched values.
type Config struct {
	// Cookie is the integrity cookie written into and expected in every frame.
	Cookie uint64

	// MaxMessageSize bounds the declared payload length of incoming frames.
	MaxMessageSize uint64

	// MaxBatchMessages bounds how many pending async writes one flush may
	// coalesce into a single write operation.
	MaxBatchMessages int
}

// DefaultConfig returns the connection parameters used when none are
// configured explicitly.
func DefaultConfig() Config {
	return Config{
		Cookie:           DefaultCookie,
		MaxMessageSize:   DefaultMaxMessageSize,
		MaxBatchMessages: DefaultMaxBatchMessages,
	}
}

// --------------------------------------------------------------------------
// Server / client configuration (CLI)
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for a dIPC server process.
type ServerConfig struct {
	// Connection parameters shared with every accepted peer
	Connection Config

	// Endpoint is the path of the unix domain socket to listen on
	Endpoint string

	// SweepIntervalSec is how often the liveness sweeper probes all peers
	// for silent disconnects (0 disables the sweeper)
	SweepIntervalSec int

	// Logging configuration
	LogLevel string
}

// ClientConfig holds all configuration parameters for a dIPC client process.
type ClientConfig struct {
	// Connection parameters
	Connection Config

	// Endpoint is the path of the unix domain socket to connect to
	Endpoint string

	// RetryCount is how many times to retry the initial connect
	RetryCount int

	// TimeoutSecond bounds the total time spent connecting (0 = none)
	TimeoutSecond int64

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("IPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Sweep Interval", fmt.Sprintf("%d sec", c.SweepIntervalSec))

	addSection("Connection")
	addField("Cookie", fmt.Sprintf("%#016x", c.Connection.Cookie))
	addField("Max Message Size", fmt.Sprintf("%d bytes", c.Connection.MaxMessageSize))
	addField("Max Batch Messages", fmt.Sprintf("%d", c.Connection.MaxBatchMessages))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
