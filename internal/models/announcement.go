package models

import "time"

// Announcement is a site-wide notice with an optional picture upload.
type Announcement struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	PicturePath *string   `db:"picture_path" json:"-"`
	PictureURL  string    `db:"-" json:"picture_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
