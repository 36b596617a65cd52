package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cinetalk/cinetalk/services/discussion/internal/models"
)

const (
	SortRecent = "recent"
	SortVotes  = "votes"
)

func (r *GormRepo) CreateDiscussion(ctx context.Context, d *models.Discussion) error {
	if err := r.DB.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("create discussion: %w", err)
	}
	return nil
}

// ListDiscussions returns one page for a movie plus the total count.
// sort is SortRecent or SortVotes; anything else falls back to recency.
func (r *GormRepo) ListDiscussions(ctx context.Context, movieID int64, sort string, offset, limit int) (int64, []models.Discussion, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Discussion{}).Where("movie_id = ?", movieID)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("count discussions: %w", err)
	}

	// id breaks ties between rows created in the same instant
	order := "created_at DESC, id DESC"
	if sort == SortVotes {
		order = "votes DESC, created_at DESC, id DESC"
	}

	items := make([]models.Discussion, 0, limit)
	if err := tx.Order(order).Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, fmt.Errorf("list discussions: %w", err)
	}
	return total, items, nil
}

func (r *GormRepo) GetDiscussion(ctx context.Context, id uint) (*models.Discussion, error) {
	var d models.Discussion
	err := r.DB.WithContext(ctx).First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get discussion: %w", err)
	}
	return &d, nil
}

// DeleteDiscussion removes a discussion owned by userID together with
// its comments and votes.
func (r *GormRepo) DeleteDiscussion(ctx context.Context, id uint, userID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Discussion
		err := tx.First(&d, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load discussion: %w", err)
		}
		if d.UserID != userID {
			return ErrForbidden
		}

		if err := tx.Where("discussion_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Where("discussion_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("delete votes: %w", err)
		}
		if err := tx.Delete(&d).Error; err != nil {
			return fmt.Errorf("delete discussion: %w", err)
		}
		return nil
	})
}
