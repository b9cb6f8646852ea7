package models

import "time"

// Follow is one directed edge of the social graph: FollowerID follows FollowingID.
// A user's followers and following lists are both read from this table, so the
// two sides can never disagree.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;index;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FollowingID uint      `gorm:"not null;index;uniqueIndex:idx_follow_pair" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}
