package model

import (
	"time"
)

type Notification struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uint64  `gorm:"not null;index" json:"user_id"`
	SenderID *uint64 `gorm:"index" json:"sender_id,omitempty"` // who triggered the notification
	Type     string  `gorm:"type:varchar(50);not null" json:"type"`
	Title    string  `gorm:"type:varchar(255);not null" json:"title"`
	Message  string  `gorm:"type:text" json:"message"`
	TargetID *uint64 `gorm:"index" json:"target_id,omitempty"` // related entity (comment ID)
	Data     string  `gorm:"type:jsonb" json:"data,omitempty"` // Additional data in JSON format
	IsRead   bool    `gorm:"default:false" json:"is_read"`

	ReadAt    *time.Time `gorm:"type:timestamp" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	User   User  `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Sender *User `gorm:"foreignKey:SenderID;references:ID" json:"sender,omitempty"`
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}

// Notification type constants
const (
	NotificationTypeCommentReply = "comment_reply"
	NotificationTypePostComment  = "post_comment"
	NotificationTypeCommentLiked = "comment_liked"
)
