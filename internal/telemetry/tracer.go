package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for protocol operations.
// These follow OpenTelemetry semantic conventions where applicable.
// Filesystem keys use the "fs." prefix, transport keys "ssh." and
// protocol keys "sftp.".
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Filesystem attributes
	// ========================================================================
	AttrOperation  = "fs.operation"
	AttrHandle     = "fs.handle"
	AttrPath       = "fs.path"
	AttrOffset     = "fs.offset"
	AttrCount      = "fs.count"
	AttrSize       = "fs.size"
	AttrStatus     = "fs.status"
	AttrBytesRead  = "fs.bytes_read"
	AttrBytesWrite = "fs.bytes_written"

	// ========================================================================
	// SSH transport attributes
	// ========================================================================
	AttrSSHConnectionID = "ssh.connection_id"
	AttrSSHChannel      = "ssh.channel"
	AttrSSHClientVer    = "ssh.client_version"

	// ========================================================================
	// SFTP attributes
	// ========================================================================
	AttrSFTPRequestID = "sftp.request_id"
	AttrSFTPPacket    = "sftp.packet"
	AttrSFTPVersion   = "sftp.version"
	AttrSFTPStatus    = "sftp.status"

	// ========================================================================
	// User/Auth attributes
	// ========================================================================
	AttrUsername = "user.name"
	AttrAuth     = "auth.method"
)

// Span names.
const (
	SpanSSHConnection = "ssh.connection"
	SpanSSHAuth       = "ssh.auth"
	SpanSFTPSession   = "sftp.session"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// ConnectionID returns an attribute for the SSH connection id
func ConnectionID(id string) attribute.KeyValue {
	return attribute.String(AttrSSHConnectionID, id)
}

// Channel returns an attribute for the SSH channel id
func Channel(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrSSHChannel, int64(id))
}

// ClientVersion returns an attribute for the SSH client banner
func ClientVersion(v string) attribute.KeyValue {
	return attribute.String(AttrSSHClientVer, v)
}

// RequestID returns an attribute for the SFTP request id
func RequestID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrSFTPRequestID, int64(id))
}

// Packet returns an attribute for the SFTP packet name
func Packet(name string) attribute.KeyValue {
	return attribute.String(AttrSFTPPacket, name)
}

// SFTPVersion returns an attribute for the negotiated SFTP version
func SFTPVersion(v uint32) attribute.KeyValue {
	return attribute.Int64(AttrSFTPVersion, int64(v))
}

// SFTPStatus returns an attribute for the status of an SFTP reply
func SFTPStatus(status string) attribute.KeyValue {
	return attribute.String(AttrSFTPStatus, status)
}

// FSOperation returns an attribute for filesystem operation name
func FSOperation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// FSHandle returns an attribute for an opaque handle token
func FSHandle(handle string) attribute.KeyValue {
	return attribute.String(AttrHandle, handle)
}

// FSPath returns an attribute for a client path
func FSPath(path string) attribute.KeyValue {
	return attribute.String(AttrPath, path)
}

// FSOffset returns an attribute for file offset
func FSOffset(offset uint64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, int64(offset))
}

// FSCount returns an attribute for byte count
func FSCount(count uint32) attribute.KeyValue {
	return attribute.Int64(AttrCount, int64(count))
}

// FSSize returns an attribute for file size
func FSSize(size uint64) attribute.KeyValue {
	return attribute.Int64(AttrSize, int64(size))
}

// FSBytesRead returns an attribute for bytes actually read
func FSBytesRead(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesRead, n)
}

// FSBytesWritten returns an attribute for bytes actually written
func FSBytesWritten(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesWrite, n)
}

// Username returns an attribute for username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// AuthMethod returns an attribute for authentication method
func AuthMethod(method string) attribute.KeyValue {
	return attribute.String(AttrAuth, method)
}

// StartSFTPSpan starts a span for one SFTP request. The span is named
// "sftp.<PACKET>".
func StartSFTPSpan(ctx context.Context, packet string, requestID uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Packet(packet),
		RequestID(requestID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "sftp."+packet, trace.WithAttributes(allAttrs...))
}

// StartSessionSpan starts the long-lived span covering one SFTP subsystem.
func StartSessionSpan(ctx context.Context, connectionID string, channel uint32, username string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanSFTPSession, trace.WithAttributes(
		ConnectionID(connectionID),
		Channel(channel),
		Username(username),
	))
}
