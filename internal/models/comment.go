// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// MaxCommentImages is the per-comment image quota, enforced client-side at
// input time. The backend does not guarantee it.
const MaxCommentImages = 5

// Comment represents a row in the backend's `blog_comments` table.
// UserEmail is a denormalized display label captured at creation time.
type Comment struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"not null" json:"content"`
	BlogID    string    `gorm:"not null;index" json:"blog_id"`
	UserID    string    `gorm:"not null" json:"user_id"`
	UserEmail string    `json:"user_email"`
	ImageURLs []string  `gorm:"serializer:json" json:"image_urls"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the label shown next to the comment.
func (c *Comment) DisplayName() string {
	if c.UserEmail == "" {
		return "Anonymous"
	}
	return c.UserEmail
}
