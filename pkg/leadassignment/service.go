package leadassignment

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

var (
	// ErrLeadNotFound is returned when the lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrUserNotFound is returned when the assignee does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoSalesUsers is returned when auto-distribution finds no
	// active sales-role users to assign to.
	ErrNoSalesUsers = errors.New("no active sales users available for assignment")
)

// distributeFetchLimit bounds how many unassigned leads one
// distribution run picks up.
const distributeFetchLimit = 10000

// Service handles lead assignment operations.
type Service struct {
	db *gorm.DB
}

// NewService creates a new lead assignment service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AssignmentResponse represents a lead assignment.
type AssignmentResponse struct {
	ID         uint   `json:"id"`
	LeadID     uint   `json:"lead_id"`
	LeadName   string `json:"lead_name"`
	LeadPhone  string `json:"lead_phone,omitempty"`
	UserID     uint   `json:"user_id"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email,omitempty"`
	Type       string `json:"type"`
	Reason     string `json:"reason,omitempty"`
	AssignedAt string `json:"assigned_at"`
}

// ItemError describes one failed lead in a distribution run.
type ItemError struct {
	LeadID uint   `json:"lead_id"`
	Reason string `json:"reason"`
}

// DistributionSummary is the structured outcome of a round-robin run:
// which leads were assigned to whom and which failed, not a bare
// counter.
type DistributionSummary struct {
	TotalUnassigned int            `json:"total_unassigned"`
	AssignedCount   int            `json:"assigned_count"`
	FailedCount     int            `json:"failed_count"`
	PerUser         map[uint]int   `json:"per_user"`
	AssignedLeadIDs []uint         `json:"assigned_lead_ids"`
	Failures        []ItemError    `json:"failures,omitempty"`
}

// AssignLead manually assigns a lead to a user. Any previous active
// assignment record is deactivated in the same transaction.
func (s *Service) AssignLead(ctx context.Context, leadID, userID uint, assignedBy uint, reason string) (*AssignmentResponse, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).First(&lead, leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if reason == "" {
		reason = "manual"
	}

	assignment := models.LeadAssignment{
		LeadID:       leadID,
		UserID:       userID,
		AssignedByID: &assignedBy,
		Type:         models.AssignmentManual,
		Reason:       reason,
		IsActive:     true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.LeadAssignment{}).
			Where("lead_id = ? AND is_active = ?", leadID, true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate previous assignments: %w", err)
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}
		if err := tx.Model(&models.Lead{}).
			Where("id = ?", leadID).
			Update("assigned_to_id", userID).Error; err != nil {
			return fmt.Errorf("failed to update lead assignee: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AssignmentResponse{
		ID:         assignment.ID,
		LeadID:     leadID,
		LeadName:   lead.Name,
		LeadPhone:  lead.Phone,
		UserID:     userID,
		UserName:   user.Name,
		UserEmail:  user.Email,
		Type:       string(assignment.Type),
		Reason:     assignment.Reason,
		AssignedAt: assignment.AssignedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

// DistributeUnassigned distributes all unassigned, non-archived leads
// across the active sales-role users round-robin: lead i goes to user
// i mod |users|. Leads are taken in id order so the distribution is
// deterministic for a given snapshot. Each of M users ends up with
// floor(N/M) or ceil(N/M) of the N leads.
func (s *Service) DistributeUnassigned(ctx context.Context, assignedBy uint) (*DistributionSummary, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND role IN ?", true, []models.UserRole{models.RoleSales, models.RoleSalesManager}).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch sales users: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrNoSalesUsers
	}

	var leads []models.Lead
	if err := s.db.WithContext(ctx).
		Where("assigned_to_id IS NULL AND archived_at IS NULL").
		Order("id ASC").
		Limit(distributeFetchLimit).
		Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch unassigned leads: %w", err)
	}

	summary := &DistributionSummary{
		TotalUnassigned: len(leads),
		PerUser:         make(map[uint]int),
		AssignedLeadIDs: []uint{},
	}

	for i := range leads {
		user := users[i%len(users)]

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Lead{}).
				Where("id = ?", leads[i].ID).
				Update("assigned_to_id", user.ID).Error; err != nil {
				return err
			}
			return tx.Create(&models.LeadAssignment{
				LeadID:       leads[i].ID,
				UserID:       user.ID,
				AssignedByID: &assignedBy,
				Type:         models.AssignmentAuto,
				Reason:       "round-robin distribution",
				IsActive:     true,
			}).Error
		})
		if err != nil {
			summary.FailedCount++
			summary.Failures = append(summary.Failures, ItemError{
				LeadID: leads[i].ID,
				Reason: err.Error(),
			})
			continue
		}

		summary.AssignedCount++
		summary.PerUser[user.ID]++
		summary.AssignedLeadIDs = append(summary.AssignedLeadIDs, leads[i].ID)
	}

	return summary, nil
}

// GetUserLeads retrieves the active assignments for a user.
func (s *Service) GetUserLeads(ctx context.Context, userID uint, limit int) ([]models.LeadAssignment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var assignments []models.LeadAssignment
	if err := s.db.WithContext(ctx).
		Preload("Lead").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("assigned_at DESC").
		Limit(limit).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	return assignments, nil
}

// GetLeadHistory retrieves the full assignment history for a lead.
func (s *Service) GetLeadHistory(ctx context.Context, leadID uint) ([]models.LeadAssignment, error) {
	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", leadID).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("failed to check lead existence: %w", err)
	}
	if exists == 0 {
		return nil, ErrLeadNotFound
	}

	var assignments []models.LeadAssignment
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("lead_id = ?", leadID).
		Order("assigned_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch assignment history: %w", err)
	}

	return assignments, nil
}
