package model

import "time"

const (
	PostNormal  = 0
	PostDeleted = 1
	PostBanned  = 2
)

type Post struct {
	ID        uint64    `gorm:"primaryKey;index:idx_forum_time_id,priority:3,sort:desc" json:"id"`
	ForumID   uint64    `gorm:"not null;index:idx_forum_time_id,priority:1" json:"forum_id"`
	AuthorID  uint64    `gorm:"not null;index:idx_author_time" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Status    int       `gorm:"not null;default:0" json:"status"` // 0=normal 1=deleted 2=banned
	LikeCount int64     `gorm:"not null;default:0" json:"like_count"`
	CreatedAt time.Time `gorm:"index:idx_forum_time_id,priority:2,sort:desc;index:idx_author_time" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
