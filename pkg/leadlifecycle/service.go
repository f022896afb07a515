package leadlifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

var (
	// ErrLeadNotFound is returned when the lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrAlreadyConverted is returned when converting a lead twice.
	ErrAlreadyConverted = errors.New("lead is already converted")
	// ErrLeadArchived is returned when mutating an archived lead.
	ErrLeadArchived = errors.New("lead is archived")
)

// Service handles lead lifecycle operations: status changes, conversion
// and soft archival.
type Service struct {
	db *gorm.DB
}

// NewService creates a new lead lifecycle service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ConversionResult reports the outcome of a lead conversion.
type ConversionResult struct {
	Lead   *models.Lead   `json:"lead"`
	Client *models.Client `json:"client"`
}

// UpdateStatus sets a lead's status directly and records the change in
// history. Any status may follow any other; there is no transition
// table. Setting the current status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, userID, leadID uint, newStatus models.LeadStatus, reason string) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).First(&lead, leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}
	if lead.IsArchived() {
		return nil, ErrLeadArchived
	}

	if lead.Status == newStatus {
		return &lead, nil
	}

	oldStatus := lead.Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&lead).Update("status", newStatus).Error; err != nil {
			return fmt.Errorf("failed to update lead status: %w", err)
		}
		history := models.LeadStatusHistory{
			LeadID:    leadID,
			UserID:    userID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Reason:    reason,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lead.Status = newStatus
	return &lead, nil
}

// Convert turns a lead into a client. The Client row creation and the
// Lead conversion stamps happen inside a single transaction so a
// failure cannot leave the system half-converted. A lead can only be
// converted once.
func (s *Service) Convert(ctx context.Context, userID, leadID uint) (*ConversionResult, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).First(&lead, leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}
	if lead.IsArchived() {
		return nil, ErrLeadArchived
	}
	if lead.IsConverted() {
		return nil, ErrAlreadyConverted
	}

	client := models.Client{
		Name:            lead.Name,
		Phone:           lead.Phone,
		Email:           lead.Email,
		Company:         lead.Company,
		Status:          models.ClientStatusActive,
		Source:          lead.Source,
		Budget:          lead.Budget,
		Location:        lead.Location,
		Notes:           lead.Notes,
		AssignedToID:    lead.AssignedToID,
		CreatedByID:     userID,
		ConvertedFromID: &lead.ID,
	}

	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&client).Error; err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		updates := map[string]interface{}{
			"status":          models.LeadStatusConverted,
			"converted_at":    now,
			"converted_to_id": client.ID,
			"converted_by_id": userID,
		}
		if err := tx.Model(&models.Lead{}).Where("id = ?", leadID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to stamp lead conversion: %w", err)
		}

		history := models.LeadStatusHistory{
			LeadID:    leadID,
			UserID:    userID,
			OldStatus: lead.Status,
			NewStatus: models.LeadStatusConverted,
			Reason:    "converted to client",
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lead.Status = models.LeadStatusConverted
	lead.ConvertedAt = &now
	lead.ConvertedToID = &client.ID
	lead.ConvertedByID = &userID

	return &ConversionResult{Lead: &lead, Client: &client}, nil
}

// Archive soft-deletes a lead: the row is kept, flagged with the
// archival timestamp and actor, and hidden from active views.
func (s *Service) Archive(ctx context.Context, userID, leadID uint) error {
	var lead models.Lead
	if err := s.db.WithContext(ctx).First(&lead, leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLeadNotFound
		}
		return fmt.Errorf("failed to fetch lead: %w", err)
	}
	if lead.IsArchived() {
		return nil
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&lead).Updates(map[string]interface{}{
		"archived_at":    now,
		"archived_by_id": userID,
	}).Error; err != nil {
		return fmt.Errorf("failed to archive lead: %w", err)
	}

	return nil
}

// GetStatusHistory retrieves the status change history for a lead,
// newest first.
func (s *Service) GetStatusHistory(ctx context.Context, leadID uint) ([]models.LeadStatusHistory, error) {
	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", leadID).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("failed to check lead existence: %w", err)
	}
	if exists == 0 {
		return nil, ErrLeadNotFound
	}

	var history []models.LeadStatusHistory
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch status history: %w", err)
	}

	return history, nil
}

// GetStatusCounts returns the number of non-archived leads per status.
func (s *Service) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).
		Model(&models.Lead{}).
		Select("status, COUNT(*) as count").
		Where("archived_at IS NULL").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count leads by status: %w", err)
	}

	counts := make(map[string]int64, len(models.ValidLeadStatuses))
	for _, status := range models.ValidLeadStatuses {
		counts[string(status)] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}

	return counts, nil
}
