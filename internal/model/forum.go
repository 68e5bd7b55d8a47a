package model

import "time"

const (
	ForumActive  = 0
	ForumDeleted = 1

	ForumRoleMember    = 0
	ForumRoleModerator = 1
)

type Forum struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	ClubID      uint64    `gorm:"not null;default:0;index" json:"club_id"`
	BoardID     uint64    `gorm:"not null;default:0;index" json:"board_id"`
	Title       string    `gorm:"size:128;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Public      bool      `gorm:"not null;default:true" json:"public"`
	CreatedBy   uint64    `gorm:"not null" json:"created_by"`
	Status      int       `gorm:"not null;default:0" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (f *Forum) Scope() Scope { return Scope{ClubID: f.ClubID, BoardID: f.BoardID} }

type ForumMember struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	ForumID   uint64    `gorm:"not null;index;uniqueIndex:uk_forum_user" json:"forum_id"`
	UserID    uint64    `gorm:"not null;index;uniqueIndex:uk_forum_user" json:"user_id"`
	Role      int       `gorm:"not null;default:0" json:"role"` // 0=member, 1=moderator
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
