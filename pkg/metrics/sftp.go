package metrics

import (
	"time"
)

// SFTPMetrics provides observability for the SSH/SFTP adapter.
//
// Implementations collect metrics about SSH connections, authentication
// attempts, SFTP sessions and the requests they serve. This interface is
// optional: pass nil to disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	m := prometheus.NewSFTPMetrics()
//	adapter := sftp.New(cfg, verifier, m)
//
//	// Without metrics
//	adapter := sftp.New(cfg, verifier, nil)
type SFTPMetrics interface {
	// RecordRequest records a completed SFTP request.
	//
	// Parameters:
	//   - operation: SFTP packet name (e.g., "OPEN", "READ", "READDIR")
	//   - duration: Time taken to process the request
	//   - status: Status of the reply ("OK", "EOF", "PERMISSION_DENIED", ...).
	//     Non-STATUS replies (HANDLE, DATA, NAME, ATTRS) record "OK".
	RecordRequest(operation string, duration time.Duration, status string)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart(operation string)

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd(operation string)

	// RecordBytesTransferred records payload bytes moved by READ or WRITE.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: Number of bytes transferred
	RecordBytesTransferred(direction string, bytes uint64)

	// RecordSessionStarted is called when an SFTP subsystem starts on a channel.
	RecordSessionStarted()

	// RecordSessionEnded is called when an SFTP protocol loop returns.
	//
	// Parameters:
	//   - reason: "eof", "error" or "shutdown"
	RecordSessionEnded(reason string)

	// RecordAuthAttempt records an SSH authentication attempt.
	//
	// Parameters:
	//   - method: "password" or "publickey"
	//   - result: "accept", "reject" or "error"
	RecordAuthAttempt(method string, result string)

	// SetActiveConnections updates the current SSH connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed increments the force-closed connections counter.
	// Called when connections are forcibly closed after shutdown timeout.
	RecordConnectionForceClosed()
}
