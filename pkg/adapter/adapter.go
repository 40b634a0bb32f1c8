// Package adapter defines the lifecycle shared by sftpbox protocol servers and
// the TCP plumbing they build on.
package adapter

import (
	"context"
)

// Adapter is a protocol server managed by the sftpbox process.
//
// Lifecycle:
//  1. Creation: the adapter is built from its configuration
//  2. Startup: Serve listens and blocks until shutdown
//  3. Shutdown: Stop (or cancelling Serve's context) drains connections
//
// Stop may be called concurrently with Serve and more than once.
type Adapter interface {
	// Serve starts the server and blocks until ctx is cancelled or the
	// listener fails. It returns nil after a graceful shutdown.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown and waits for active connections
	// until ctx is done.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name used in logs and metrics.
	Protocol() string

	// Port returns the configured TCP port.
	Port() int

	// MapError translates a domain error into a protocol status, or nil when
	// the error has no protocol meaning.
	MapError(err error) ProtocolError
}
