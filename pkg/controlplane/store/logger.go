package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/sftpbox/internal/logger"
)

// slowQueryThreshold is the duration above which a query is logged at WARN.
// Logins wait on these queries.
const slowQueryThreshold = 200 * time.Millisecond

// gormLogger sends GORM messages to the process logger. Queries are only
// logged when they fail or are slow; missing rows are expected and skipped.
type gormLogger struct {
	level gormlogger.LogLevel
}

func newGormLogger() gormlogger.Interface {
	return &gormLogger{level: gormlogger.Warn}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		logger.DebugCtx(ctx, "database: "+fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		logger.WarnCtx(ctx, "database: "+fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		logger.ErrorCtx(ctx, "database: "+fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		logger.DebugCtx(ctx, "Database query failed",
			"sql", sql, "rows", rows, logger.KeyDurationMs, durationMs(elapsed), logger.KeyError, err)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.WarnCtx(ctx, "Slow database query",
			"sql", sql, "rows", rows, logger.KeyDurationMs, durationMs(elapsed))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		logger.DebugCtx(ctx, "Database query", "sql", sql, "rows", rows, logger.KeyDurationMs, durationMs(elapsed))
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
