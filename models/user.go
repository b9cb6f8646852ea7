package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is an Aedi account. Passwords are stored as bcrypt hashes only and never serialised.
//
// The graph and engagement lists are not columns: they are read from the
// follows, post_likes and adaptations tables so that every edge lives in
// exactly one row.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"_id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Provider     string    `gorm:"size:32;index:idx_user_provider" json:"provider,omitempty"`
	ProviderID   string    `gorm:"size:255;index:idx_user_provider" json:"-"`
	ProfileImg   string    `gorm:"size:512" json:"profileImg"`
	TotalNice    int       `gorm:"not null;default:0" json:"totalNice"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Followers  []uint `gorm:"-" json:"followers"`
	Following  []uint `gorm:"-" json:"following"`
	LikedPosts []uint `gorm:"-" json:"likedPosts"`
	AdaptEdits []uint `gorm:"-" json:"adaptEdits"`
	AdaptNexts []uint `gorm:"-" json:"adaptNexts"`
}

// UserSummary is the short sender projection attached to notifications.
type UserSummary struct {
	ID         uint   `json:"_id"`
	Username   string `json:"username"`
	ProfileImg string `json:"profileImg"`
}

// Summary returns the short projection of u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfileImg: u.ProfileImg}
}

// BeforeSave normalises identity fields so uniqueness checks are not case sensitive on email.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}
