package model

import (
	"time"
)

type Like struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;index:idx_like_user_comment,unique" json:"user_id"`
	CommentID uint64    `gorm:"not null;index:idx_like_user_comment,unique" json:"comment_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Comment Comment `gorm:"foreignKey:CommentID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name
func (Like) TableName() string {
	return "likes"
}
