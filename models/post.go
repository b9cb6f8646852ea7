package models

import "time"

// Post is a root content item created by a user.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`
	UserID    uint      `gorm:"index;not null" json:"-"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`

	Likes      []uint       `gorm:"-" json:"likes"`
	AdaptEdits []Adaptation `gorm:"-" json:"adaptEdits"`
	AdaptNexts []Adaptation `gorm:"-" json:"adaptNexts"`
}

// PostLike records that UserID likes PostID. The pair is unique.
type PostLike struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_like"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_post_like"`
	CreatedAt time.Time
}
