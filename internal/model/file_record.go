package model

import (
	"time"
)

// FileRecord is a file attached to a comment (or a post), stored on
// Cloudinary and referenced by URL.
type FileRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CommentID *uint64   `gorm:"index" json:"comment_id,omitempty"`
	PostID    *uint64   `gorm:"index" json:"post_id,omitempty"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	FileType  string    `gorm:"type:varchar(50)" json:"file_type"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name
func (FileRecord) TableName() string {
	return "file_records"
}
