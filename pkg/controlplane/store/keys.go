package store

import (
	"context"
	"errors"

	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

// ============================================
// PUBLIC KEY OPERATIONS
// ============================================

func (s *GORMStore) AddPublicKey(ctx context.Context, username string, key *models.PublicKey) (string, error) {
	user, err := getByField[models.User](s.db, ctx, "username", username, models.ErrUserNotFound)
	if err != nil {
		return "", err
	}

	key.UserID = user.ID
	return createWithID(s.db, ctx, key, func(k *models.PublicKey, id string) { k.ID = id }, key.ID, models.ErrDuplicateKey)
}

func (s *GORMStore) ListPublicKeys(ctx context.Context, username string) ([]*models.PublicKey, error) {
	user, err := getByField[models.User](s.db, ctx, "username", username, models.ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	var keys []*models.PublicKey
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).Order("created_at").Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *GORMStore) DeletePublicKey(ctx context.Context, username, fingerprint string) error {
	user, err := getByField[models.User](s.db, ctx, "username", username, models.ErrUserNotFound)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.ErrKeyNotFound
		}
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND fingerprint = ?", user.ID, fingerprint).
		Delete(&models.PublicKey{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrKeyNotFound
	}
	return nil
}

func (s *GORMStore) FindPublicKey(ctx context.Context, username, fingerprint string) (*models.User, *models.PublicKey, error) {
	user, err := getByField[models.User](s.db, ctx, "username", username, models.ErrUserNotFound)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, nil, models.ErrKeyNotFound
		}
		return nil, nil, err
	}

	var key models.PublicKey
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND fingerprint = ?", user.ID, fingerprint).
		First(&key).Error; err != nil {
		return nil, nil, convertNotFoundError(err, models.ErrKeyNotFound)
	}

	if !user.Enabled {
		return nil, nil, models.ErrUserDisabled
	}
	return user, &key, nil
}
