package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cinetalk/cinetalk/services/discussion/internal/models"
)

var ErrBadVote = errors.New("vote value must be 1 or -1")

// CastVote records value (+1 or -1) for (discussionID, userID) and
// returns the new tally. Voting the same way twice withdraws the vote;
// voting the other way switches it. Vote row and tally move in one
// transaction so the counter never drifts.
func (r *GormRepo) CastVote(ctx context.Context, discussionID uint, userID string, value int) (int, error) {
	if value != 1 && value != -1 {
		return 0, ErrBadVote
	}

	var tally int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Discussion
		err := tx.First(&d, discussionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load discussion: %w", err)
		}

		var existing models.Vote
		err = tx.Where("discussion_id = ? AND user_id = ?", discussionID, userID).First(&existing).Error

		var delta int
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Vote{DiscussionID: discussionID, UserID: userID, Value: value}).Error; err != nil {
				return fmt.Errorf("create vote: %w", err)
			}
			delta = value
		case err != nil:
			return fmt.Errorf("load vote: %w", err)
		case existing.Value == value:
			// same direction again: withdraw
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("withdraw vote: %w", err)
			}
			delta = -value
		default:
			// switch direction
			if err := tx.Model(&existing).Update("value", value).Error; err != nil {
				return fmt.Errorf("switch vote: %w", err)
			}
			delta = 2 * value
		}

		tally = d.Votes + delta
		if err := tx.Model(&d).Update("votes", tally).Error; err != nil {
			return fmt.Errorf("update tally: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return tally, nil
}
