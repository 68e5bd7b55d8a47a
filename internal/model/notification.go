package model

import "time"

const (
	KindOpportunity = "opportunity"
	KindForumPost   = "forum_post"
	KindAnnounce    = "announcement"
)

type Notification struct {
	ID            uint64     `gorm:"primaryKey" json:"id"`
	UserID        uint64     `gorm:"not null;index:idx_notif_pending,priority:1;index:idx_notif_user_id,priority:1;uniqueIndex:uk_notif_user_event,priority:1" json:"user_id"`
	OutboxID      *uint64    `gorm:"uniqueIndex:uk_notif_user_event,priority:2" json:"-"`
	Kind          string     `gorm:"size:32;not null" json:"kind"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Message       string     `gorm:"type:text" json:"message"`
	Link          string     `gorm:"size:512" json:"link"`
	Transferred   bool       `gorm:"not null;default:false;index:idx_notif_pending,priority:2" json:"transferred"`
	TransferredAt *time.Time `json:"transferred_at,omitempty"`
	Read          bool       `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt     time.Time  `json:"created_at"`
}

const (
	EventOpportunityCreated = "opportunity.created"
	EventForumPostCreated   = "forum_post.created"
	EventAnnouncement       = "announcement"

	OutboxPending = 0
	OutboxSent    = 1
	OutboxFailed  = 2
)

// NotificationOutbox holds fan-out events written in the same transaction as the record
// that caused them.
type NotificationOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:32;not null"`
	Scope     string `gorm:"size:16;not null"`
	ScopeID   uint64 `gorm:"not null"`
	ActorID   uint64 `gorm:"not null"`
	RefID     uint64 `gorm:"not null;default:0"`
	Payload   string `gorm:"type:json;not null"`
	Status    int8   `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (NotificationOutbox) TableName() string { return "notification_outbox" }

// OutboxEvent is the decoded payload carried through the outbox and Kafka.
type OutboxEvent struct {
	EventType string    `json:"event_type"`
	Scope     string    `json:"scope"`
	ScopeID   uint64    `json:"scope_id"`
	ActorID   uint64    `json:"actor_id"`
	RefID     uint64    `json:"ref_id"`
	OutboxID  uint64    `json:"outbox_id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      string    `json:"link,omitempty"`
	UserIDs   []uint64  `json:"user_ids,omitempty"`
	EventTime time.Time `json:"event_time"`
}
