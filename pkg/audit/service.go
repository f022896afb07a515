package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

// Service records workflow actions for traceability.
type Service struct {
	db *gorm.DB
}

// NewService creates a new audit service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Entry carries the fields of one audit event.
type Entry struct {
	UserID       *uint
	Action       models.AuditAction
	Severity     models.AuditSeverity
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
	Description  string
	Metadata     models.JSONMap
}

// Log writes one audit row. A short timeout keeps audit writes from
// stalling the request that triggered them.
func (s *Service) Log(ctx context.Context, entry Entry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		Severity:     entry.Severity,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		Description:  entry.Description,
		Metadata:     entry.Metadata,
	}
	if row.Severity == "" {
		row.Severity = models.SeverityInfo
	}

	return s.db.WithContext(ctx).Create(&row).Error
}

// LogLeadAction records an action against a lead.
func (s *Service) LogLeadAction(ctx context.Context, userID uint, action models.AuditAction, leadID uint, description string) error {
	return s.Log(ctx, Entry{
		UserID:       &userID,
		Action:       action,
		ResourceType: "lead",
		ResourceID:   strconv.FormatUint(uint64(leadID), 10),
		Description:  description,
	})
}

// LogUserAction records a login/logout/register event.
func (s *Service) LogUserAction(ctx context.Context, userID uint, action models.AuditAction, ipAddress, userAgent string) error {
	return s.Log(ctx, Entry{
		UserID:    &userID,
		Action:    action,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}

// ListRequest filters the audit trail.
type ListRequest struct {
	UserID *uint
	Action models.AuditAction
	Since  *time.Time
	Page   int
	Limit  int
}

// List returns a page of audit entries, newest first.
func (s *Service) List(ctx context.Context, req ListRequest) ([]models.AuditLog, int64, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if req.UserID != nil {
		query = query.Where("user_id = ?", *req.UserID)
	}
	if req.Action != "" {
		query = query.Where("action = ?", req.Action)
	}
	if req.Since != nil {
		query = query.Where("created_at >= ?", *req.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var entries []models.AuditLog
	if err := query.
		Order("created_at DESC").
		Offset((req.Page - 1) * req.Limit).
		Limit(req.Limit).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	return entries, total, nil
}
