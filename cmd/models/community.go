package models

import (
	"time"

	"gorm.io/gorm"
)

// Tag category codes. Free-text tag names map onto these fixed parts;
// anything unrecognized falls back to TagPartOther.
const (
	TagPartTogether  = "TOG"
	TagPartQuestion  = "QST"
	TagPartInfoShare = "INF"
	TagPartDaily     = "DAI"
	TagPartOther     = "OTH"
)

// DefaultTagName is applied when a post is created without a tag.
const DefaultTagName = "일상공유"

var tagPartByName = map[string]string{
	"같이해요":        TagPartTogether,
	"궁금해요":        TagPartQuestion,
	"정보공유":        TagPartInfoShare,
	"일상공유":        TagPartDaily,
	"together":    TagPartTogether,
	"question":    TagPartQuestion,
	"info-share":  TagPartInfoShare,
	"daily-share": TagPartDaily,
}

// TagPartForName maps a free-text tag name to its category code.
func TagPartForName(name string) string {
	if part, ok := tagPartByName[name]; ok {
		return part
	}
	return TagPartOther
}

func ValidTagPart(part string) bool {
	switch part {
	case TagPartTogether, TagPartQuestion, TagPartInfoShare, TagPartDaily, TagPartOther:
		return true
	}
	return false
}

type Tag struct {
	gorm.Model
	Name string `gorm:"column:name;size:20;not null;uniqueIndex:idx_tag_name_part" json:"name"`
	Part string `gorm:"column:part;size:4;not null;uniqueIndex:idx_tag_name_part" json:"part"`
}

type Post struct {
	gorm.Model
	MemberID uint   `gorm:"column:member_id;not null;index" json:"member_id"`
	Title    string `gorm:"column:title;size:50;not null" json:"title"`
	Content  string `gorm:"column:content;type:text;not null" json:"content"`
	TagID    uint   `gorm:"column:tag_id" json:"tag_id"`

	// Same story as Diary.LikeCount: legacy column, never trusted.
	LikeCount int `gorm:"column:like_count;default:0" json:"-"`

	Member   *Member       `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Tag      *Tag          `gorm:"foreignKey:TagID" json:"tag,omitempty"`
	Likes    []PostLike    `gorm:"foreignKey:PostID" json:"likes,omitempty"`
	Comments []PostComment `gorm:"foreignKey:PostID" json:"comments,omitempty"`
}

// PostLike rows are hard-deleted on unlike, same as DiaryLike.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	MemberID  uint      `gorm:"column:member_id;not null;uniqueIndex:idx_post_like_pair" json:"member_id"`
	PostID    uint      `gorm:"column:post_id;not null;uniqueIndex:idx_post_like_pair" json:"post_id"`
	Member    *Member   `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

type PostComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	MemberID  uint      `gorm:"column:member_id;not null" json:"member_id"`
	PostID    uint      `gorm:"column:post_id;not null;index" json:"post_id"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	Member    *Member   `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}
