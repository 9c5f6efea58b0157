package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
)

// Notification is one rendered, per-recipient message. The unique index on
// (event_id, user_id) makes fan-out idempotent under at-least-once delivery.
type Notification struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_notifications_event_user"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_notifications_event_user;index:idx_notifications_user"`

	Type     string `gorm:"type:varchar(40);not null"`
	Title    string `gorm:"type:varchar(150);not null"`
	Message  string `gorm:"type:text;not null"`
	Priority string `gorm:"type:varchar(10);not null;default:'NORMAL'"`

	ReadAt    *time.Time
	CreatedAt time.Time
}

func (Notification) TableName() string {
	return "notifications"
}
