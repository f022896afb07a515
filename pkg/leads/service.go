package leads

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/leadscoring"
	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/phone"
)

var (
	// ErrLeadNotFound is returned when the lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrInvalidPhone is returned when the phone cannot be normalized
	// to a valid number of at least 10 significant digits.
	ErrInvalidPhone = errors.New("invalid phone number")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service handles lead CRUD and listing.
type Service struct {
	db *gorm.DB
}

// NewService creates a new lead service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListResult is a page of leads plus the total row count.
type ListResult struct {
	Leads []models.Lead
	Page  int
	Limit int
	Total int64
}

// Create validates, normalizes and persists a new lead. The phone is
// normalized to E.164 and must be valid; the score is derived from the
// submitted fields before the row is written.
func (s *Service) Create(ctx context.Context, req models.CreateLeadRequest, createdBy uint) (*models.Lead, error) {
	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}

	lead := models.Lead{
		Name:        req.Name,
		Phone:       normalized,
		Email:       req.Email,
		Company:     req.Company,
		Source:      req.Source,
		Status:      models.LeadStatusNew,
		Priority:    models.PriorityMedium,
		Interest:    req.Interest,
		Type:        models.ClientTypeIndividual,
		Location:    req.Location,
		Budget:      req.Budget,
		Notes:       req.Notes,
		CreatedByID: createdBy,
	}
	if req.Priority != "" {
		lead.Priority = models.LeadPriority(req.Priority)
	}
	if req.Type != "" {
		lead.Type = models.ClientType(req.Type)
	}

	lead.Score, _ = leadscoring.Compute(leadscoring.Input{
		Interest: lead.Interest,
		Type:     lead.Type,
		Source:   lead.Source,
		Phone:    lead.Phone,
		Email:    lead.Email,
		Location: lead.Location,
		Budget:   lead.Budget,
	})

	if err := s.db.WithContext(ctx).Create(&lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	return &lead, nil
}

// GetByID fetches a single lead with its assignee preloaded.
func (s *Service) GetByID(ctx context.Context, id uint) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).Preload("AssignedTo").First(&lead, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}
	return &lead, nil
}

// Update applies the non-nil fields of the request, re-normalizing the
// phone and recomputing the derived score afterwards.
func (s *Service) Update(ctx context.Context, id uint, req models.UpdateLeadRequest) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).First(&lead, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}

	if req.Name != nil {
		lead.Name = *req.Name
	}
	if req.Phone != nil {
		normalized, err := phone.Normalize(*req.Phone)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPhone, err)
		}
		lead.Phone = normalized
	}
	if req.Email != nil {
		lead.Email = *req.Email
	}
	if req.Company != nil {
		lead.Company = *req.Company
	}
	if req.Source != nil {
		lead.Source = *req.Source
	}
	if req.Priority != nil {
		lead.Priority = models.LeadPriority(*req.Priority)
	}
	if req.Interest != nil {
		lead.Interest = *req.Interest
	}
	if req.Type != nil {
		lead.Type = models.ClientType(*req.Type)
	}
	if req.Location != nil {
		lead.Location = *req.Location
	}
	if req.Budget != nil {
		lead.Budget = req.Budget
	}
	if req.Notes != nil {
		lead.Notes = *req.Notes
	}

	lead.Score, _ = leadscoring.Compute(leadscoring.Input{
		Interest: lead.Interest,
		Type:     lead.Type,
		Source:   lead.Source,
		Phone:    lead.Phone,
		Email:    lead.Email,
		Location: lead.Location,
		Budget:   lead.Budget,
	})

	if err := s.db.WithContext(ctx).Save(&lead).Error; err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	return &lead, nil
}

// List returns a page of leads matching the filters. Archived leads
// are excluded unless explicitly requested.
func (s *Service) List(ctx context.Context, req models.LeadListRequest) (*ListResult, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Lead{})

	if req.Archived {
		query = query.Where("archived_at IS NOT NULL")
	} else {
		query = query.Where("archived_at IS NULL")
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Priority != "" {
		query = query.Where("priority = ?", req.Priority)
	}
	if req.Unassigned {
		query = query.Where("assigned_to_id IS NULL")
	} else if req.AssignedTo != 0 {
		query = query.Where("assigned_to_id = ?", req.AssignedTo)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("name LIKE ? OR phone LIKE ? OR email LIKE ? OR company LIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	var results []models.Lead
	if err := query.
		Preload("AssignedTo").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}

	return &ListResult{Leads: results, Page: page, Limit: limit, Total: total}, nil
}

// ListUsers returns all active users, for assignment pickers.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, nil
}
