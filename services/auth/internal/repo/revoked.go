package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cinetalk/cinetalk/services/auth/internal/models"
)

// RevokeToken records an access token in the revocation ledger.
// Revoking an already-revoked token is a no-op, not an error: logout
// must never fail because a token was revoked twice.
func (r *GormRepo) RevokeToken(ctx context.Context, token string, expiresAt time.Time) error {
	row := models.RevokedToken{Token: token, ExpiresAt: expiresAt}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token"}}, DoNothing: true}).
		Create(&row).Error
}

// IsTokenRevoked checks the ledger by exact token string. A row past
// its expiry still answers true here; the token is rejected either way,
// the sweep merely hasn't collected the row yet.
func (r *GormRepo) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("token = ?", token).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// RevokeAllForUser deletes every refresh token of the user and revokes
// the presented access token in one transaction: either every session
// ends together or the operation fails whole.
func (r *GormRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID, accessToken string, accessExp time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		row := models.RevokedToken{Token: accessToken, ExpiresAt: accessExp}
		return tx.
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token"}}, DoNothing: true}).
			Create(&row).Error
	})
}

func (r *GormRepo) DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	result := r.DB.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.RevokedToken{})
	return result.RowsAffected, result.Error
}
