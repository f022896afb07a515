package models

import (
	"time"
)

// LeadStatus represents the lifecycle state of a lead.
type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "new"
	LeadStatusContacted  LeadStatus = "contacted"
	LeadStatusInterested LeadStatus = "interested"
	LeadStatusQualified  LeadStatus = "qualified"
	LeadStatusConverted  LeadStatus = "converted"
	LeadStatusLost       LeadStatus = "lost"
)

// ValidLeadStatuses lists every accepted lead status value.
var ValidLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusInterested,
	LeadStatusQualified,
	LeadStatusConverted,
	LeadStatusLost,
}

// LeadPriority represents the urgency of a lead.
type LeadPriority string

const (
	PriorityLow    LeadPriority = "low"
	PriorityMedium LeadPriority = "medium"
	PriorityHigh   LeadPriority = "high"
	PriorityUrgent LeadPriority = "urgent"
)

// ClientType categorizes who the lead represents.
type ClientType string

const (
	ClientTypeIndividual  ClientType = "individual"
	ClientTypeInstitution ClientType = "institution"
	ClientTypeInvestor    ClientType = "investor"
)

// Lead represents a prospective customer prior to conversion.
//
// Archival is a parallel axis to status: ArchivedAt set means the lead
// is hidden from active views but the row is kept.
type Lead struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	Name     string       `gorm:"not null;index" json:"name"`
	Phone    string       `gorm:"not null;index" json:"phone"`
	Email    string       `gorm:"index" json:"email,omitempty"`
	Company  string       `json:"company,omitempty"`
	Source   string       `gorm:"not null" json:"source"`
	Status   LeadStatus   `gorm:"type:varchar(32);default:'new';index" json:"status"`
	Priority LeadPriority `gorm:"type:varchar(32);default:'medium'" json:"priority"`
	Score    int          `gorm:"default:0;index" json:"score"`
	Interest string       `json:"interest,omitempty"`
	Type     ClientType   `gorm:"column:client_type;type:varchar(32);default:'individual'" json:"client_type"`
	Location string       `json:"location,omitempty"`
	Budget   *float64     `json:"budget,omitempty"`
	Notes    string       `gorm:"type:text" json:"notes,omitempty"`

	AssignedToID *uint `gorm:"index" json:"assigned_to,omitempty"`
	AssignedTo   *User `gorm:"foreignKey:AssignedToID" json:"assigned_to_user,omitempty"`
	CreatedByID  uint  `gorm:"index" json:"created_by"`

	// Conversion stamps, set once when the lead becomes a client.
	ConvertedAt   *time.Time `json:"converted_at,omitempty"`
	ConvertedToID *uint      `gorm:"index" json:"converted_to,omitempty"`
	ConvertedByID *uint      `json:"converted_by,omitempty"`

	// Soft archive: Active | Archived{at, by}.
	ArchivedAt   *time.Time `gorm:"index" json:"archived_at,omitempty"`
	ArchivedByID *uint      `json:"archived_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsArchived reports whether the lead has been soft-deleted.
func (l *Lead) IsArchived() bool {
	return l.ArchivedAt != nil
}

// IsConverted reports whether the lead already produced a client.
func (l *Lead) IsConverted() bool {
	return l.Status == LeadStatusConverted
}

// LeadStatusHistory records one status transition on a lead.
type LeadStatusHistory struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	LeadID    uint       `gorm:"not null;index" json:"lead_id"`
	UserID    uint       `gorm:"not null" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID" json:"-"`
	OldStatus LeadStatus `gorm:"type:varchar(32)" json:"old_status"`
	NewStatus LeadStatus `gorm:"type:varchar(32);not null" json:"new_status"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AssignmentType distinguishes manual from round-robin assignments.
type AssignmentType string

const (
	AssignmentManual AssignmentType = "manual"
	AssignmentAuto   AssignmentType = "auto"
)

// LeadAssignment records an assignment of a lead to a user.
type LeadAssignment struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	LeadID       uint           `gorm:"not null;index" json:"lead_id"`
	Lead         *Lead          `gorm:"foreignKey:LeadID" json:"-"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	User         *User          `gorm:"foreignKey:UserID" json:"-"`
	AssignedByID *uint          `json:"assigned_by,omitempty"`
	Type         AssignmentType `gorm:"type:varchar(16);default:'manual'" json:"type"`
	Reason       string         `json:"reason,omitempty"`
	IsActive     bool           `gorm:"default:true;index" json:"is_active"`
	AssignedAt   time.Time      `gorm:"autoCreateTime" json:"assigned_at"`
}
