package model

import "time"

// Board is a governing body that owns clubs.
type Board struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description"`
	Image           string    `gorm:"size:255" json:"image"`
	CreatedBy       uint64    `gorm:"not null;index" json:"created_by"`
	SubscriberCount int64     `gorm:"not null;default:0" json:"subscriber_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Club struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	BoardID         uint64    `gorm:"not null;index" json:"board_id"`
	Name            string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description"`
	Image           string    `gorm:"size:255" json:"image"`
	CreatedBy       uint64    `gorm:"not null;index" json:"created_by"`
	SubscriberCount int64     `gorm:"not null;default:0" json:"subscriber_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
