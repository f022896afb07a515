package models

import (
	"time"
)

// NotificationPriority orders notifications for display.
type NotificationPriority string

const (
	NotificationLow    NotificationPriority = "low"
	NotificationNormal NotificationPriority = "normal"
	NotificationHigh   NotificationPriority = "high"
)

// Notification is a write-once message for a user. Only the read flag
// mutates after creation.
type Notification struct {
	ID              uint                 `gorm:"primaryKey" json:"id"`
	TargetUserEmail string               `gorm:"not null;index" json:"target_user_email"`
	Type            string               `gorm:"type:varchar(64);not null" json:"type"`
	Priority        NotificationPriority `gorm:"type:varchar(16);default:'normal'" json:"priority"`
	Data            JSONMap              `gorm:"type:text" json:"data,omitempty"`
	IsRead          bool                 `gorm:"default:false;index" json:"is_read"`
	ReadAt          *time.Time           `json:"read_at,omitempty"`
	SentViaSSE      bool                 `gorm:"default:false" json:"sent_via_sse"`
	CreatedAt       time.Time            `json:"created_at"`
}
