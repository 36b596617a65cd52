package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"      json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"      json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string    `gorm:"not null"                  json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RefreshToken is one refresh-capable session. A user holds one row per
// device; the opaque value is the lookup key.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null"       json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RevokedToken is the revocation ledger: access tokens to reject before
// their natural expiry, keyed by the literal token string. ExpiresAt
// mirrors the token's own exp so the sweep knows when a row is dead.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index;not null"       json:"expires_at"`
}
