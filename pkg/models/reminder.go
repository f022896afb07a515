package models

import (
	"time"
)

// ReminderStatus is the state of a reminder.
type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderDone    ReminderStatus = "done"
)

// Reminder is a follow-up note scheduled for a user, optionally linked
// to a lead. RemindAt must be strictly in the future at creation.
type Reminder struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID" json:"-"`
	LeadID     *uint          `gorm:"index" json:"lead_id,omitempty"`
	Note       string         `gorm:"type:text;not null" json:"note"`
	RemindAt   time.Time      `gorm:"not null;index" json:"remind_at"`
	Status     ReminderStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	DoneAt     *time.Time     `json:"done_at,omitempty"`
	NotifiedAt *time.Time     `json:"notified_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
