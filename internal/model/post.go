package model

import (
	"time"
)

// Post is the feed entry comments hang off. Post lifecycle is managed by
// another service; the comment engine only resolves existence and the owner
// for notifications.
type Post struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	Content   *string   `gorm:"type:text" json:"content,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName specifies the table name
func (Post) TableName() string {
	return "posts"
}
