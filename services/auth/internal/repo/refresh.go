package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cinetalk/cinetalk/services/auth/internal/models"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

func (r *GormRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

// FindRefreshToken looks a row up by the exact opaque value. Possession
// of that value is the whole credential; there is nothing else to check
// against.
func (r *GormRepo) FindRefreshToken(ctx context.Context, value string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", value).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *GormRepo) DeleteRefreshToken(ctx context.Context, value string) error {
	return r.DB.WithContext(ctx).
		Where("token = ?", value).
		Delete(&models.RefreshToken{}).Error
}

// DeleteRefreshTokensForUser ends every refresh-capable session of one
// user in a single statement, so no partial set of sessions survives.
func (r *GormRepo) DeleteRefreshTokensForUser(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.RefreshToken{}).Error
}

func (r *GormRepo) DeleteExpiredRefreshTokensForUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND expires_at < ?", userID, now).
		Delete(&models.RefreshToken{}).Error
}

func (r *GormRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	result := r.DB.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}
