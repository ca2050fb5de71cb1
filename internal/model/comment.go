package model

import (
	"time"
)

// MaxContentLength bounds comment text. Longer content is rejected before
// the row is written.
const MaxContentLength = 2200

type Comment struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID   uint64  `gorm:"not null;index" json:"post_id"`
	UserID   uint64  `gorm:"not null;index" json:"user_id"`
	ParentID *uint64 `gorm:"index" json:"parent_id,omitempty"` // For nested comments/replies
	Content  string  `gorm:"type:varchar(2200)" json:"content"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	// UpdatedAt is set only when the content is edited, never on creation.
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`

	// Relationships
	Post   Post         `gorm:"foreignKey:PostID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	User   User         `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Parent *Comment     `gorm:"foreignKey:ParentID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Files  []FileRecord `gorm:"foreignKey:CommentID;references:ID;constraint:OnDelete:CASCADE" json:"files,omitempty"`

	// Derived at read time, never stored. Recomputing on every read keeps
	// the counts correct under concurrent likes and replies.
	LikeCount            int64 `gorm:"-" json:"like_count"`
	ReplyCount           int64 `gorm:"-" json:"reply_count"`
	IsLikedByCurrentUser bool  `gorm:"-" json:"is_liked_by_current_user"`

	// Parent author display fields for the reply view
	ParentAuthorName string `gorm:"-" json:"parent_author_name,omitempty"`
	ParentUsername   string `gorm:"-" json:"parent_username,omitempty"`
}

// TableName specifies the table name
func (Comment) TableName() string {
	return "comments"
}

// IsReply reports whether the comment has a parent.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}
