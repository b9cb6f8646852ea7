package models

import "time"

// AdaptationKind tags the two sub-entity sequences a post owns.
type AdaptationKind string

const (
	// KindEdit is a reply-like adaptEdit.
	KindEdit AdaptationKind = "edit"
	// KindNext is a repost-with-comment adaptNext (continuation).
	KindNext AdaptationKind = "next"
)

// Valid reports whether k is a known kind.
func (k AdaptationKind) Valid() bool {
	return k == KindEdit || k == KindNext
}

// Adaptation is an edit or continuation attached to a post. It never exists
// outside its post; order within a kind follows ID.
type Adaptation struct {
	ID        uint           `gorm:"primaryKey" json:"_id"`
	PostID    uint           `gorm:"not null;index:idx_adaptation_post_kind" json:"postId"`
	Kind      AdaptationKind `gorm:"size:8;not null;index:idx_adaptation_post_kind" json:"kind"`
	UserID    uint           `gorm:"not null;index" json:"-"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time      `json:"createdAt"`
	User      User           `gorm:"foreignKey:UserID" json:"user"`

	Likes []uint `gorm:"-" json:"likes"`
}

// AdaptationLike records that UserID likes AdaptationID. The pair is unique.
type AdaptationLike struct {
	ID           uint      `gorm:"primaryKey"`
	AdaptationID uint      `gorm:"not null;uniqueIndex:idx_adaptation_like"`
	UserID       uint      `gorm:"not null;index;uniqueIndex:idx_adaptation_like"`
	CreatedAt    time.Time
}
