package store

import (
	"context"
	"fmt"
)

var _ Store = (*GORMStore)(nil)

// Healthcheck pings the database and checks that the users table answers.
// The readiness probe reports failure when either step fails.
func (s *GORMStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	var n int64
	if err := s.db.WithContext(ctx).Table("users").Limit(1).Count(&n).Error; err != nil {
		return fmt.Errorf("users table unavailable: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
