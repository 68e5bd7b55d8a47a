package model

import "time"

const (
	OpportunityEvent = "event"
	OpportunityJob   = "job"
)

// Opportunity is a listing with an external application link.
type Opportunity struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	ClubID      uint64     `gorm:"not null;default:0;index" json:"club_id"`
	BoardID     uint64     `gorm:"not null;default:0;index" json:"board_id"`
	CreatedBy   uint64     `gorm:"not null;index" json:"created_by"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Kind        string     `gorm:"size:16;not null;index" json:"kind"`
	Link        string     `gorm:"size:512" json:"link"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (o *Opportunity) Scope() Scope { return Scope{ClubID: o.ClubID, BoardID: o.BoardID} }

type OpportunityFilter struct {
	Scope  Scope
	Kind   string
	Offset int
	Limit  int
}
