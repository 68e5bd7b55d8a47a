package model

import "time"

// Subscription marks a user following a club or board's announcements.
type Subscription struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:uk_sub_user_scope,priority:1" json:"user_id"`
	ClubID    uint64    `gorm:"not null;default:0;uniqueIndex:uk_sub_user_scope,priority:2;index:idx_sub_club" json:"club_id"`
	BoardID   uint64    `gorm:"not null;default:0;uniqueIndex:uk_sub_user_scope,priority:3;index:idx_sub_board" json:"board_id"`
	Status    int8      `gorm:"not null;default:1;comment:'1=subscribed,0=unsubscribed'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Subscription) Scope() Scope { return Scope{ClubID: s.ClubID, BoardID: s.BoardID} }

// CountPair is a stored subscriber counter next to its owner id.
type CountPair struct {
	ID              uint64
	SubscriberCount int64
}
