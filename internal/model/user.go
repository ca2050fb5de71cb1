package model

import (
	"time"
)

// User carries the author display fields the comment feed needs. Account
// management and authentication live outside this service; rows here are
// kept in sync by the identity provider.
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	FullName  string    `gorm:"type:varchar(100)" json:"full_name"`
	AvatarURL *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// DisplayName returns the full name, falling back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
