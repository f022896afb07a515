package models

import (
	"time"
)

// BackupStatus tracks a backup's lifecycle.
type BackupStatus string

const (
	BackupPending   BackupStatus = "pending"
	BackupCompleted BackupStatus = "completed"
	BackupFailed    BackupStatus = "failed"
)

// BackupRecord tracks one database backup artifact.
type BackupRecord struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Filename     string       `gorm:"not null" json:"filename"`
	FileSize     int64        `json:"file_size"`
	S3Key        string       `json:"s3_key,omitempty"`
	UploadedToS3 bool         `gorm:"default:false" json:"uploaded_to_s3"`
	Status       BackupStatus `gorm:"type:varchar(16);default:'pending'" json:"status"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `gorm:"index" json:"created_at"`
}
