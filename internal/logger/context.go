package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for one SSH connection,
// narrowed to a channel and an SFTP request as the request moves inward.
type LogContext struct {
	TraceID      string    // OpenTelemetry trace ID
	SpanID       string    // OpenTelemetry span ID
	ConnectionID string    // Connection identifier assigned at accept
	ClientIP     string    // Client IP address (without port)
	Username     string    // Authenticated SSH user
	Channel      uint32    // SSH channel id within the connection
	HasChannel   bool      // Channel is set
	Operation    string    // SFTP operation name (OPEN, READ, ...)
	RequestID    uint32    // SFTP request id
	HasRequest   bool      // RequestID is set
	StartTime    time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a connection
func NewLogContext(connectionID, clientIP string) *LogContext {
	return &LogContext{
		ConnectionID: connectionID,
		ClientIP:     clientIP,
		StartTime:    time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithUser returns a copy with the authenticated user set
func (lc *LogContext) WithUser(username string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Username = username
	}
	return clone
}

// WithChannel returns a copy scoped to an SSH channel
func (lc *LogContext) WithChannel(id uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Channel = id
		clone.HasChannel = true
	}
	return clone
}

// WithRequest returns a copy scoped to a single SFTP request. The start
// time is reset so DurationMs measures the request.
func (lc *LogContext) WithRequest(operation string, id uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
		clone.RequestID = id
		clone.HasRequest = true
		clone.StartTime = time.Now()
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
