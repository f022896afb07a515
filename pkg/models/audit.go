package models

import (
	"time"
)

// AuditAction identifies the kind of event being recorded.
type AuditAction string

const (
	AuditUserLogin     AuditAction = "user_login"
	AuditUserLogout    AuditAction = "user_logout"
	AuditUserRegister  AuditAction = "user_register"
	AuditLeadCreate    AuditAction = "lead_create"
	AuditLeadUpdate    AuditAction = "lead_update"
	AuditLeadArchive   AuditAction = "lead_archive"
	AuditLeadConvert   AuditAction = "lead_convert"
	AuditLeadAssign    AuditAction = "lead_assign"
	AuditLeadImport    AuditAction = "lead_import"
	AuditClientCreate  AuditAction = "client_create"
	AuditClientArchive AuditAction = "client_archive"
	AuditExportCreate  AuditAction = "export_create"
	AuditBackupCreate  AuditAction = "backup_create"
)

// AuditSeverity grades an audit event.
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityCritical AuditSeverity = "critical"
)

// AuditLog records a workflow action for traceability.
type AuditLog struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	UserID       *uint         `gorm:"index" json:"user_id,omitempty"`
	Action       AuditAction   `gorm:"type:varchar(64);not null;index" json:"action"`
	Severity     AuditSeverity `gorm:"type:varchar(16);default:'info'" json:"severity"`
	ResourceType string        `gorm:"type:varchar(32)" json:"resource_type,omitempty"`
	ResourceID   string        `gorm:"type:varchar(64)" json:"resource_id,omitempty"`
	IPAddress    string        `json:"ip_address,omitempty"`
	UserAgent    string        `json:"user_agent,omitempty"`
	Description  string        `json:"description,omitempty"`
	Metadata     JSONMap       `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt    time.Time     `gorm:"index" json:"created_at"`
}
