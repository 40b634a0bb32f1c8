package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// getByField loads the first T whose field equals value. A missing row is
// reported as notFoundErr.
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error, preloads ...string) (*T, error) {
	var result T
	q := db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.Where(field+" = ?", value).First(&result).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// createWithID inserts entity, assigning a fresh UUID through setID when
// currentID is empty. Unique violations (a taken username, a key already
// registered to the user) become dupErr.
func createWithID[T any](db *gorm.DB, ctx context.Context, entity *T, setID func(*T, string), currentID string, dupErr error) (string, error) {
	id := currentID
	if id == "" {
		id = uuid.New().String()
		setID(entity, id)
	}
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", dupErr
		}
		return "", err
	}
	return id, nil
}
