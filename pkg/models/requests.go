package models

import (
	"time"
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateLeadRequest carries the fields accepted when creating a lead.
type CreateLeadRequest struct {
	Name     string   `json:"name" validate:"required,min=2"`
	Phone    string   `json:"phone" validate:"required"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Company  string   `json:"company"`
	Source   string   `json:"source" validate:"required"`
	Priority string   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Interest string   `json:"interest"`
	Type     string   `json:"client_type" validate:"omitempty,oneof=individual institution investor"`
	Location string   `json:"location"`
	Budget   *float64 `json:"budget"`
	Notes    string   `json:"notes"`
}

// UpdateLeadRequest carries optional field updates for a lead.
// Nil pointers leave the stored value untouched.
type UpdateLeadRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=2"`
	Phone    *string  `json:"phone"`
	Email    *string  `json:"email" validate:"omitempty,email"`
	Company  *string  `json:"company"`
	Source   *string  `json:"source"`
	Priority *string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Interest *string  `json:"interest"`
	Type     *string  `json:"client_type" validate:"omitempty,oneof=individual institution investor"`
	Location *string  `json:"location"`
	Budget   *float64 `json:"budget"`
	Notes    *string  `json:"notes"`
}

// LeadListRequest holds list/search parameters for leads.
type LeadListRequest struct {
	Status     string `query:"status" validate:"omitempty,oneof=new contacted interested qualified converted lost"`
	Priority   string `query:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssignedTo uint   `query:"assigned_to"`
	Unassigned bool   `query:"unassigned"`
	Search     string `query:"search"`
	Archived   bool   `query:"archived"`
	Page       int    `query:"page" validate:"omitempty,min=1"`
	Limit      int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// DuplicateCheckRequest checks a single phone/email pair.
type DuplicateCheckRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

// BulkDuplicateCheckRequest checks parallel candidate arrays, typically
// parsed from an import file.
type BulkDuplicateCheckRequest struct {
	Phones []string `json:"phones"`
	Emails []string `json:"emails"`
}

// CreateClientRequest carries the fields accepted when creating a client.
type CreateClientRequest struct {
	Name     string   `json:"name" validate:"required,min=2"`
	Phone    string   `json:"phone" validate:"required"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Company  string   `json:"company"`
	Status   string   `json:"status" validate:"omitempty,oneof=active inactive potential converted"`
	Source   string   `json:"source"`
	Budget   *float64 `json:"budget"`
	Location string   `json:"location"`
	Notes    string   `json:"notes"`
}

// CreateInteractionRequest logs a contact event against a lead or client.
type CreateInteractionRequest struct {
	ItemType   string `json:"item_type" validate:"required,oneof=lead client"`
	ItemID     uint   `json:"item_id" validate:"required"`
	Type       string `json:"type" validate:"required,oneof=call email meeting whatsapp visit note"`
	Outcome    string `json:"outcome"`
	Notes      string `json:"notes"`
	Duration   int    `json:"duration" validate:"omitempty,min=0"`
	NextAction string `json:"next_action"`
}

// CreateReminderRequest schedules a follow-up.
type CreateReminderRequest struct {
	Note     string    `json:"note" validate:"required"`
	RemindAt time.Time `json:"remind_at" validate:"required"`
	LeadID   *uint     `json:"lead_id"`
}

// UpdateReminderRequest reschedules or rewords a pending reminder.
type UpdateReminderRequest struct {
	Note     *string    `json:"note"`
	RemindAt *time.Time `json:"remind_at"`
}

// UpdateStatusRequest sets a lead's status directly.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted interested qualified converted lost"`
	Reason string `json:"reason"`
}

// AssignLeadRequest manually assigns a lead to a user.
type AssignLeadRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Reason string `json:"reason"`
}

// ExportRequest describes a leads/clients export.
type ExportRequest struct {
	Entity string `json:"entity" validate:"required,oneof=leads clients"`
	Format string `json:"format" validate:"required,oneof=csv excel"`
	Status string `json:"status"`
}
