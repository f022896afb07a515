package models

import (
	"time"
)

// ClientStatus represents the state of a confirmed customer.
type ClientStatus string

const (
	ClientStatusActive    ClientStatus = "active"
	ClientStatusInactive  ClientStatus = "inactive"
	ClientStatusPotential ClientStatus = "potential"
	ClientStatusConverted ClientStatus = "converted"
)

// Client represents a confirmed customer, created directly or from a
// converted lead. Conversion creates a new Client row; the source Lead
// row is kept and linked via Lead.ConvertedToID.
type Client struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	Name     string       `gorm:"not null;index" json:"name"`
	Phone    string       `gorm:"not null;index" json:"phone"`
	Email    string       `gorm:"index" json:"email,omitempty"`
	Company  string       `json:"company,omitempty"`
	Status   ClientStatus `gorm:"type:varchar(32);default:'active';index" json:"status"`
	Source   string       `json:"source,omitempty"`
	Budget   *float64     `json:"budget,omitempty"`
	Location string       `json:"location,omitempty"`
	Notes    string       `gorm:"type:text" json:"notes,omitempty"`

	AssignedToID *uint `gorm:"index" json:"assigned_to,omitempty"`
	AssignedTo   *User `gorm:"foreignKey:AssignedToID" json:"assigned_to_user,omitempty"`
	CreatedByID  uint  `json:"created_by"`

	// Set when the client originated from a lead conversion.
	ConvertedFromID *uint `gorm:"index" json:"converted_from,omitempty"`

	ArchivedAt   *time.Time `gorm:"index" json:"archived_at,omitempty"`
	ArchivedByID *uint      `json:"archived_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsArchived reports whether the client has been soft-deleted.
func (c *Client) IsArchived() bool {
	return c.ArchivedAt != nil
}
