package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/phone"
)

var (
	// ErrClientNotFound is returned when the client does not exist.
	ErrClientNotFound = errors.New("client not found")
	// ErrInvalidPhone is returned when the phone cannot be normalized.
	ErrInvalidPhone = errors.New("invalid phone number")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service handles client CRUD and listing.
type Service struct {
	db *gorm.DB
}

// NewService creates a new client service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListRequest holds list/search parameters for clients.
type ListRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=active inactive potential converted"`
	Search   string `query:"search"`
	Archived bool   `query:"archived"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ListResult is a page of clients plus the total row count.
type ListResult struct {
	Clients []models.Client
	Page    int
	Limit   int
	Total   int64
}

// Create validates, normalizes and persists a directly-created client
// (as opposed to one produced by converting a lead).
func (s *Service) Create(ctx context.Context, req models.CreateClientRequest, createdBy uint) (*models.Client, error) {
	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}

	client := models.Client{
		Name:        req.Name,
		Phone:       normalized,
		Email:       req.Email,
		Company:     req.Company,
		Status:      models.ClientStatusActive,
		Source:      req.Source,
		Budget:      req.Budget,
		Location:    req.Location,
		Notes:       req.Notes,
		CreatedByID: createdBy,
	}
	if req.Status != "" {
		client.Status = models.ClientStatus(req.Status)
	}

	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &client, nil
}

// GetByID fetches a single client.
func (s *Service) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).Preload("AssignedTo").First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	return &client, nil
}

// UpdateRequest carries optional field updates for a client.
type UpdateRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=2"`
	Phone    *string  `json:"phone"`
	Email    *string  `json:"email" validate:"omitempty,email"`
	Company  *string  `json:"company"`
	Status   *string  `json:"status" validate:"omitempty,oneof=active inactive potential converted"`
	Source   *string  `json:"source"`
	Budget   *float64 `json:"budget"`
	Location *string  `json:"location"`
	Notes    *string  `json:"notes"`
}

// Update applies the non-nil fields of the request.
func (s *Service) Update(ctx context.Context, id uint, req UpdateRequest) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Phone != nil {
		normalized, err := phone.Normalize(*req.Phone)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPhone, err)
		}
		client.Phone = normalized
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Company != nil {
		client.Company = *req.Company
	}
	if req.Status != nil {
		client.Status = models.ClientStatus(*req.Status)
	}
	if req.Source != nil {
		client.Source = *req.Source
	}
	if req.Budget != nil {
		client.Budget = req.Budget
	}
	if req.Location != nil {
		client.Location = *req.Location
	}
	if req.Notes != nil {
		client.Notes = *req.Notes
	}

	if err := s.db.WithContext(ctx).Save(&client).Error; err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}

	return &client, nil
}

// Archive soft-deletes a client, keeping the row.
func (s *Service) Archive(ctx context.Context, id, archivedBy uint) error {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("failed to fetch client: %w", err)
	}
	if client.IsArchived() {
		return nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"archived_at":    &now,
		"archived_by_id": archivedBy,
	}
	if err := s.db.WithContext(ctx).Model(&client).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to archive client: %w", err)
	}
	return nil
}

// List returns a page of clients matching the filters. Archived clients
// are excluded unless explicitly requested.
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResult, error) {
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

	query := s.db.WithContext(ctx).Model(&models.Client{})

	if req.Archived {
		query = query.Where("archived_at IS NOT NULL")
	} else {
		query = query.Where("archived_at IS NULL")
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("name LIKE ? OR phone LIKE ? OR email LIKE ? OR company LIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}

	var results []models.Client
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}

	return &ListResult{Clients: results, Page: page, Limit: limit, Total: total}, nil
}
