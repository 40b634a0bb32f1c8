package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging. Use these consistently so
// connection, channel and request logs can be joined in aggregation.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Transport
	KeyConnectionID = "connection_id" // Connection identifier assigned at accept
	KeyChannel      = "channel"       // SSH channel id
	KeyChannelType  = "channel_type"  // SSH channel type (session, direct-tcpip, ...)
	KeySubsystem    = "subsystem"     // Requested subsystem name
	KeyRequestType  = "request_type"  // SSH channel request type (subsystem, exec, ...)
	KeyClientIP     = "client_ip"
	KeyClientPort   = "client_port"
	KeyClientVer    = "client_version" // SSH client version banner
	KeyUsername     = "username"
	KeyAuth         = "auth"        // Authentication method: password, publickey
	KeyFingerprint  = "fingerprint" // SHA256 public key fingerprint
	KeyVerifier     = "verifier"    // Credential verifier that decided

	// SFTP requests
	KeyOperation = "operation"  // SFTP operation: OPEN, READ, WRITE, ...
	KeyRequestID = "request_id" // SFTP request id
	KeyVersion   = "version"    // Negotiated SFTP version
	KeyHandle    = "handle"     // Opaque handle token
	KeyStatus    = "status"     // SFTP status code name
	KeyStatusMsg = "status_msg"

	// Filesystem
	KeyPath    = "path"
	KeyOldPath = "old_path"
	KeyNewPath = "new_path"
	KeyFlags   = "flags" // SFTP open flags
	KeySize    = "size"
	KeyMode    = "mode"
	KeyEntries = "entries"
	KeyRoot    = "root" // Sandbox root

	// I/O
	KeyOffset       = "offset"
	KeyCount        = "count"
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"
	KeyEOF          = "eof"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyAddress    = "address"
	KeyComponent  = "component"
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// ConnectionID returns a slog.Attr for the connection identifier
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// Channel returns a slog.Attr for an SSH channel id
func Channel(id uint32) slog.Attr {
	return slog.Uint64(KeyChannel, uint64(id))
}

func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Auth returns a slog.Attr for the authentication method
func Auth(method string) slog.Attr {
	return slog.String(KeyAuth, method)
}

func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

func RequestID(id uint32) slog.Attr {
	return slog.Uint64(KeyRequestID, uint64(id))
}

// Handle returns a slog.Attr for an opaque handle token
func Handle(h string) slog.Attr {
	return slog.String(KeyHandle, h)
}

func Status(name string) slog.Attr {
	return slog.String(KeyStatus, name)
}

func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

func OldPath(p string) slog.Attr {
	return slog.String(KeyOldPath, p)
}

func NewPath(p string) slog.Attr {
	return slog.String(KeyNewPath, p)
}

// Flags returns a slog.Attr for SFTP open flags, formatted as hex
func Flags(f uint32) slog.Attr {
	return slog.String(KeyFlags, fmt.Sprintf("0x%02x", f))
}

// Mode returns a slog.Attr for a permission mode, formatted as octal
func Mode(m uint32) slog.Attr {
	return slog.String(KeyMode, fmt.Sprintf("%04o", m))
}

func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

func Count(c uint32) slog.Attr {
	return slog.Uint64(KeyCount, uint64(c))
}

func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
