// Package logger is the process-wide structured logger. Messages go through
// log/slog, as colored text on terminals or as JSON, and the *Ctx variants
// prefix the connection, channel, and request fields carried by a
// LogContext.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/term"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config selects level, format, and destination.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

// sink is where records go. It is replaced as a whole under sinkMu.
type sink struct {
	w      io.Writer
	closer io.Closer // non-nil for log files opened by Init
	color  bool
	format string
	logger *slog.Logger
}

var (
	level atomic.Int32

	sinkMu  sync.RWMutex
	current = &sink{w: os.Stdout, color: isTerminal(os.Stdout), format: "text"}
)

func init() {
	level.Store(int32(LevelInfo))
	current.logger = current.build()
}

// isTerminal reports whether f is attached to a terminal. NO_COLOR disables
// color regardless.
func isTerminal(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// ParseLevel converts a level name to a Level. Unknown names report false.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// build creates the slog logger for s at the current level.
func (s *sink) build() *slog.Logger {
	opts := &slog.HandlerOptions{Level: Level(level.Load()).slog()}
	if s.format == "json" {
		return slog.New(slog.NewJSONHandler(s.w, opts))
	}
	return slog.New(NewColorTextHandler(s.w, opts, s.color))
}

// replace installs a sink derived from the current one by edit. A log file
// the old sink opened is closed when edit swaps the writer.
func replace(edit func(s *sink)) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	next := *current
	edit(&next)
	next.logger = next.build()

	if current.closer != nil && current.closer != next.closer {
		_ = current.closer.Close()
	}
	current = &next
}

// openOutput resolves a Config.Output value.
func openOutput(name string) (w io.Writer, closer io.Closer, color bool, err error) {
	switch strings.ToLower(name) {
	case "", "stdout":
		return os.Stdout, nil, isTerminal(os.Stdout), nil
	case "stderr":
		return os.Stderr, nil, isTerminal(os.Stderr), nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to open log file %q: %w", name, err)
	}
	return f, f, false, nil
}

// Init applies cfg. Empty fields keep their current setting.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, closer, color, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		replace(func(s *sink) {
			s.w, s.closer, s.color = w, closer, color
		})
	}
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	return nil
}

// InitWithWriter sends output to w. Used by tests.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	replace(func(s *sink) {
		s.w, s.closer, s.color = w, nil, enableColor
	})
	if level != "" {
		SetLevel(level)
	}
	if format != "" {
		SetFormat(format)
	}
}

// SetLevel sets the minimum level. Invalid names are ignored.
func SetLevel(name string) {
	l, ok := ParseLevel(name)
	if !ok {
		return
	}
	level.Store(int32(l))
	replace(func(*sink) {})
}

// SetFormat switches between "text" and "json". Other values are ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	replace(func(s *sink) { s.format = format })
}

func enabled(l Level) bool {
	return l >= Level(level.Load())
}

func emit(ctx context.Context, l Level, msg string, args []any) {
	if !enabled(l) {
		return
	}
	args = appendContextFields(ctx, args)
	sinkMu.RLock()
	lg := current.logger
	sinkMu.RUnlock()
	lg.Log(ctx, l.slog(), msg, args...)
}

// Debug logs msg with key/value pairs at DEBUG.
func Debug(msg string, args ...any) { emit(context.Background(), LevelDebug, msg, args) }

// Info logs msg with key/value pairs at INFO.
func Info(msg string, args ...any) { emit(context.Background(), LevelInfo, msg, args) }

// Warn logs msg with key/value pairs at WARN.
func Warn(msg string, args ...any) { emit(context.Background(), LevelWarn, msg, args) }

// Error logs msg with key/value pairs at ERROR.
func Error(msg string, args ...any) { emit(context.Background(), LevelError, msg, args) }

// DebugCtx is Debug with the LogContext fields of ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelDebug, msg, args) }

// InfoCtx is Info with the LogContext fields of ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelInfo, msg, args) }

// WarnCtx is Warn with the LogContext fields of ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelWarn, msg, args) }

// ErrorCtx is Error with the LogContext fields of ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelError, msg, args) }

// appendContextFields puts the LogContext fields of ctx before args.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	out := make([]any, 0, 16+len(args))
	if lc.TraceID != "" {
		out = append(out, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		out = append(out, KeySpanID, lc.SpanID)
	}
	if lc.ConnectionID != "" {
		out = append(out, KeyConnectionID, lc.ConnectionID)
	}
	if lc.ClientIP != "" {
		out = append(out, KeyClientIP, lc.ClientIP)
	}
	if lc.Username != "" {
		out = append(out, KeyUsername, lc.Username)
	}
	if lc.HasChannel {
		out = append(out, KeyChannel, lc.Channel)
	}
	if lc.Operation != "" {
		out = append(out, KeyOperation, lc.Operation)
	}
	if lc.HasRequest {
		out = append(out, KeyRequestID, lc.RequestID)
	}
	return append(out, args...)
}
