package models

import "time"

// Favorite is one user's bookmark of one movie. The title and poster
// are snapshots taken at save time so the list renders without a
// metadata lookup.
type Favorite struct {
	ID         uint      `gorm:"primaryKey"                              json:"id"`
	UserID     string    `gorm:"index:idx_user_movie,unique;not null"    json:"user_id"`
	MovieID    int64     `gorm:"index:idx_user_movie,unique;not null"    json:"movie_id"`
	Title      string    `gorm:"not null"                                json:"title"`
	PosterPath string    `json:"poster_path"`
	CreatedAt  time.Time `json:"created_at"`
}
