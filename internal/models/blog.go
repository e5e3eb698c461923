// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Blog represents a blog post row in the backend's `blogs` table.
// The ID and both timestamps are server-assigned; ImageURLs keeps the
// upload/keep order submitted by the author.
type Blog struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  string    `gorm:"not null;index" json:"author_id"`
	ImageURLs []string  `gorm:"serializer:json" json:"image_urls"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edited reports whether the post has been changed since creation.
// updated_at == created_at means never edited.
func (b *Blog) Edited() bool {
	return b.UpdatedAt.After(b.CreatedAt)
}
