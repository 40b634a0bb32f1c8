package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/sftpbox/internal/logger"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "DEBUG", "text", false)
	t.Cleanup(func() { logger.InitWithWriter(os.Stdout, "INFO", "text", false) })
	return &buf
}

func TestGormLoggerTrace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM users", 0 }
	ctx := context.Background()

	t.Run("failed query", func(t *testing.T) {
		buf := captureLogs(t)
		newGormLogger().Trace(ctx, time.Now(), query, errors.New("disk I/O error"))
		assert.Contains(t, buf.String(), "Database query failed")
		assert.Contains(t, buf.String(), "disk I/O error")
	})

	t.Run("missing row is quiet", func(t *testing.T) {
		buf := captureLogs(t)
		newGormLogger().Trace(ctx, time.Now(), query, gorm.ErrRecordNotFound)
		assert.Empty(t, buf.String())
	})

	t.Run("slow query", func(t *testing.T) {
		buf := captureLogs(t)
		newGormLogger().Trace(ctx, time.Now().Add(-time.Second), query, nil)
		assert.Contains(t, buf.String(), "Slow database query")
		assert.Contains(t, buf.String(), "[WARN]")
	})

	t.Run("fast query", func(t *testing.T) {
		buf := captureLogs(t)
		newGormLogger().Trace(ctx, time.Now(), query, nil)
		assert.Empty(t, buf.String())
	})

	t.Run("silent", func(t *testing.T) {
		buf := captureLogs(t)
		newGormLogger().LogMode(gormlogger.Silent).Trace(ctx, time.Now(), query, errors.New("boom"))
		assert.Empty(t, buf.String())
	})
}

func TestHealthcheck(t *testing.T) {
	s, err := New(&Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: ":memory:"}})
	assert.NoError(t, err)

	assert.NoError(t, s.Healthcheck(context.Background()))
	assert.NoError(t, s.Close())
	assert.Error(t, s.Healthcheck(context.Background()))
}
