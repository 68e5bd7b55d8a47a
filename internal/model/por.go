package model

import "time"

const (
	CapAny           = "any" // any POR on the scope
	CapPost          = "post"
	CapManageMembers = "manage_members"
	CapManageForums  = "manage_forums"
)

// PrivilegeType is a POR (position of responsibility): a user's role in one club or board.
// ClubID and BoardID use 0 for "not set" so the unique index also covers board-only rows.
type PrivilegeType struct {
	ID               uint64    `gorm:"primaryKey" json:"id"`
	UserID           uint64    `gorm:"not null;uniqueIndex:uk_por_user_scope,priority:1" json:"user_id"`
	ClubID           uint64    `gorm:"not null;default:0;index;uniqueIndex:uk_por_user_scope,priority:2" json:"club_id"`
	BoardID          uint64    `gorm:"not null;default:0;index;uniqueIndex:uk_por_user_scope,priority:3" json:"board_id"`
	Position         string    `gorm:"size:64;not null" json:"position"`
	CanPost          bool      `gorm:"not null;default:true" json:"can_post"`
	CanManageMembers bool      `gorm:"not null;default:false" json:"can_manage_members"`
	CanManageForums  bool      `gorm:"not null;default:false" json:"can_manage_forums"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (PrivilegeType) TableName() string { return "privilege_types" }

func (p *PrivilegeType) Scope() Scope { return Scope{ClubID: p.ClubID, BoardID: p.BoardID} }

// Allows reports whether the POR grants the capability.
func (p *PrivilegeType) Allows(capability string) bool {
	switch capability {
	case CapAny:
		return true
	case CapPost:
		return p.CanPost
	case CapManageMembers:
		return p.CanManageMembers
	case CapManageForums:
		return p.CanManageForums
	}
	return false
}
