package model

import "time"

const (
	RoleStudent = 0
	RoleAdmin   = 1
)

type User struct {
	ID        uint64     `gorm:"primaryKey" json:"id"`
	Username  string     `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Password  string     `gorm:"size:255;not null" json:"-"`
	Role      int        `gorm:"default:0" json:"role"`
	Email     string     `gorm:"uniqueIndex;size:64;not null" json:"email"`
	Banned    bool       `gorm:"not null;default:false;index" json:"banned"`
	BanReason string     `gorm:"size:255" json:"ban_reason,omitempty"`
	BannedAt  *time.Time `json:"banned_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role >= RoleAdmin }

// BanStatus is the cached answer to "is this user banned".
type BanStatus struct {
	UserID uint64 `json:"id"`
	Banned bool   `json:"banned"`
	Reason string `json:"reason,omitempty"`
}
