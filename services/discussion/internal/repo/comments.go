package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cinetalk/cinetalk/services/discussion/internal/models"
)

func (r *GormRepo) CreateComment(ctx context.Context, c *models.Comment) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Discussion{}).Where("id = ?", c.DiscussionID).Count(&exists).Error; err != nil {
			return fmt.Errorf("check discussion: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return tx.Create(c).Error
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("create comment: %w", err)
	}
	return err
}

func (r *GormRepo) ListComments(ctx context.Context, discussionID uint) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	err := r.DB.WithContext(ctx).
		Where("discussion_id = ?", discussionID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (r *GormRepo) DeleteComment(ctx context.Context, id uint, userID string) error {
	var c models.Comment
	err := r.DB.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load comment: %w", err)
	}
	if c.UserID != userID {
		return ErrForbidden
	}
	if err := r.DB.WithContext(ctx).Delete(&c).Error; err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
