package auth

import (
	"context"
	"errors"
	"time"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"gorm.io/gorm"
)

type GormTokenStore struct {
	db *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

func (s *GormTokenStore) FindByRefreshToken(ctx context.Context, refresh string) (*models.OAuthToken, error) {
	return s.findBy(ctx, "refresh_token = ?", refresh)
}

func (s *GormTokenStore) FindByAccessToken(ctx context.Context, access string) (*models.OAuthToken, error) {
	return s.findBy(ctx, "access_token = ?", access)
}

func (s *GormTokenStore) findBy(ctx context.Context, query string, value string) (*models.OAuthToken, error) {
	var token models.OAuthToken
	if err := s.db.WithContext(ctx).Where(query, value).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (s *GormTokenStore) Create(ctx context.Context, token *models.OAuthToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *GormTokenStore) RevokeAt(ctx context.Context, token *models.OAuthToken, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.OAuthToken{}).
		Where("id = ? AND revoked_at IS NULL", token.ID).
		Update("revoked_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	token.RevokedAt = &at
	return true, nil
}

func (s *GormTokenStore) MarkRotated(ctx context.Context, token *models.OAuthToken, successorID string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.OAuthToken{}).
		Where("id = ? AND successor_id IS NULL AND revoked_at IS NULL", token.ID).
		Updates(map[string]interface{}{
			"successor_id": successorID,
			"rotated_at":   at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyRotated
	}
	token.SuccessorID = &successorID
	token.RotatedAt = &at
	return nil
}

func (s *GormTokenStore) Transaction(ctx context.Context, fn func(store TokenStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormTokenStore{db: tx})
	})
}
