// Package cmd implements the command-line interface for dIPC. It provides
// a hierarchical command structure with operations for running the demo
// echo server and exercising a connection against it.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the dIPC echo server
//   - ping: Commands for round-tripping messages against a running server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dipc -help for a list of all commands.
package cmd
