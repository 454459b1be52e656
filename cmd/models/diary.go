package models

import (
	"time"

	"gorm.io/gorm"
)

// Diary visibility levels.
const (
	VisibilityPublic    = "public"
	VisibilityFollowers = "followers"
	VisibilityPrivate   = "private"
)

func ValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityFollowers, VisibilityPrivate:
		return true
	}
	return false
}

type Diary struct {
	gorm.Model
	MemberID   uint   `gorm:"column:member_id;not null;index" json:"member_id"`
	PhotoPath  string `gorm:"column:photo_path;size:255" json:"photo_path"`
	Content    string `gorm:"column:content;size:100;not null" json:"content"`
	Visibility string `gorm:"column:visibility;size:10;not null;default:public" json:"visibility"`

	// Kept for schema compatibility with older revisions. Responses always
	// count likes live; this column is never read or incremented.
	LikeCount int `gorm:"column:like_count;default:0" json:"-"`

	Member   *Member        `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Likes    []DiaryLike    `gorm:"foreignKey:DiaryID" json:"likes,omitempty"`
	Comments []DiaryComment `gorm:"foreignKey:DiaryID" json:"comments,omitempty"`
}

// DiaryLike rows are deleted for real on unlike; a soft delete would keep
// the unique (member, diary) index occupied and block re-liking.
type DiaryLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	MemberID  uint      `gorm:"column:member_id;not null;uniqueIndex:idx_diary_like_pair" json:"member_id"`
	DiaryID   uint      `gorm:"column:diary_id;not null;uniqueIndex:idx_diary_like_pair" json:"diary_id"`
	Member    *Member   `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

type DiaryComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	MemberID  uint      `gorm:"column:member_id;not null" json:"member_id"`
	DiaryID   uint      `gorm:"column:diary_id;not null;index" json:"diary_id"`
	Content   string    `gorm:"column:content;size:100;not null" json:"content"`
	Member    *Member   `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

// Follow is a directed edge: the follower watches the following member.
// FollowerCount of X counts edges where X is on the following side.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	FollowerID  uint      `gorm:"column:follower_id;not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FollowingID uint      `gorm:"column:following_id;not null;uniqueIndex:idx_follow_pair" json:"following_id"`
	Follower    *Member   `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Following   *Member   `gorm:"foreignKey:FollowingID" json:"following,omitempty"`
}
