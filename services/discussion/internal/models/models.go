package models

import "time"

type Discussion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Username  string    `gorm:"not null" json:"username"`
	MovieID   int64     `gorm:"index;not null" json:"movie_id"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `json:"body"`
	Votes     int       `gorm:"not null;default:0" json:"votes"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DiscussionID uint      `gorm:"index;not null" json:"discussion_id"`
	UserID       string    `gorm:"not null" json:"user_id"`
	Username     string    `gorm:"not null" json:"username"`
	Body         string    `gorm:"not null" json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

// Vote rows are unique per (discussion, user); the running tally lives
// on the discussion row and is adjusted in the same transaction.
type Vote struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DiscussionID uint      `gorm:"uniqueIndex:idx_discussion_user;not null" json:"discussion_id"`
	UserID       string    `gorm:"uniqueIndex:idx_discussion_user;not null" json:"user_id"`
	Value        int       `gorm:"not null" json:"value"`
	CreatedAt    time.Time `json:"created_at"`
}
