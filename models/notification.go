package models

import "time"

// NotificationType is the closed set of engagement events.
type NotificationType string

const (
	NotifyFollow           NotificationType = "follow"
	NotifyLike             NotificationType = "like"
	NotifyLikeEdit         NotificationType = "likeEdit"
	NotifyLikeContinuation NotificationType = "likeContinuation"
	NotifyEdit             NotificationType = "edit"
	NotifyContinuation     NotificationType = "continuation"
)

// Notification is an event addressed to ToID. Only the recipient may read or delete it.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"_id"`
	FromID    uint             `gorm:"not null;index" json:"-"`
	ToID      uint             `gorm:"not null;index:idx_notification_to_read" json:"to"`
	PostID    *uint            `json:"postId,omitempty"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Read      bool             `gorm:"column:is_read;not null;default:false;index:idx_notification_to_read" json:"read"`
	CreatedAt time.Time        `gorm:"index" json:"createdAt"`

	From *UserSummary `gorm:"-" json:"from"`
}
