package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cinetalk/cinetalk/services/favorites/internal/models"
)

var ErrNotFound = errors.New("favorite not found")

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) List(ctx context.Context, userID string) ([]models.Favorite, error) {
	var favorites []models.Favorite
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error; err != nil {
		return nil, err
	}
	return favorites, nil
}

// Add is idempotent per (user, movie): favoriting the same movie twice
// keeps the original row.
func (r *GormRepo) Add(ctx context.Context, favorite *models.Favorite) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "movie_id"}},
			DoNothing: true,
		}).
		Create(favorite).Error
}

func (r *GormRepo) Remove(ctx context.Context, userID string, movieID int64) error {
	result := r.DB.WithContext(ctx).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Delete(&models.Favorite{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
