// Package common provides the shared configuration and logging utilities for
// the dIPC connection layer. It defines the connection-level parameters
// (integrity cookie, size and batching limits) that are threaded explicitly
// into every connection at construction time, as well as the server- and
// client-side configuration structs used by the CLI.
//
// Key Components:
//
//   - Config: Per-connection parameters (cookie, max message size, max
//     frames coalesced per async flush).
//
//   - ServerConfig/ClientConfig: Endpoint-level configuration for the
//     `dipc serve` and `dipc ping` commands.
//
//   - CreateLogger/InitLoggers: Logger factory producing the uniform
//     `LEVEL | name | message` log format for all dIPC packages.
package common
