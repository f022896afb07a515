package interactions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

var (
	// ErrItemNotFound is returned when the target lead or client does
	// not exist.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidItemType is returned for item types other than lead or
	// client.
	ErrInvalidItemType = errors.New("invalid item type")
)

const defaultHistoryLimit = 100

// Service manages the append-only interaction log. Entries are only
// ever inserted; there is no update or delete path.
type Service struct {
	db *gorm.DB
}

// NewService creates a new interaction service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Log records a contact event against a lead or client after checking
// the target row exists. The backend outcome vocabulary is collapsed to
// the small client-facing set before the row is written.
func (s *Service) Log(ctx context.Context, req models.CreateInteractionRequest, createdBy uint) (*models.Interaction, error) {
	if err := s.checkItemExists(ctx, models.InteractionItemType(req.ItemType), req.ItemID); err != nil {
		return nil, err
	}

	interaction := models.Interaction{
		ItemType:    models.InteractionItemType(req.ItemType),
		ItemID:      req.ItemID,
		Type:        models.InteractionType(req.Type),
		Notes:       req.Notes,
		Duration:    req.Duration,
		NextAction:  req.NextAction,
		CreatedByID: createdBy,
	}
	if req.Outcome != "" {
		interaction.Outcome = models.MapOutcome(req.Outcome)
	}

	if err := s.db.WithContext(ctx).Create(&interaction).Error; err != nil {
		return nil, fmt.Errorf("failed to log interaction: %w", err)
	}

	return &interaction, nil
}

// AddNote appends a plain note entry to a lead or client.
func (s *Service) AddNote(ctx context.Context, itemType string, itemID uint, note string, createdBy uint) (*models.Interaction, error) {
	return s.Log(ctx, models.CreateInteractionRequest{
		ItemType: itemType,
		ItemID:   itemID,
		Type:     string(models.InteractionNote),
		Notes:    note,
	}, createdBy)
}

// History returns the interactions logged against one lead or client,
// newest first.
func (s *Service) History(ctx context.Context, itemType models.InteractionItemType, itemID uint, limit int) ([]models.Interaction, error) {
	if err := s.checkItemExists(ctx, itemType, itemID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	var entries []models.Interaction
	if err := s.db.WithContext(ctx).
		Where("item_type = ? AND item_id = ?", itemType, itemID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch interactions: %w", err)
	}
	return entries, nil
}

// RecentByUser returns the latest interactions a user logged, for the
// activity feed.
func (s *Service) RecentByUser(ctx context.Context, userID uint, limit int) ([]models.Interaction, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	var entries []models.Interaction
	if err := s.db.WithContext(ctx).
		Where("created_by_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch interactions: %w", err)
	}
	return entries, nil
}

func (s *Service) checkItemExists(ctx context.Context, itemType models.InteractionItemType, itemID uint) error {
	var count int64
	switch itemType {
	case models.ItemTypeLead:
		if err := s.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", itemID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check lead: %w", err)
		}
	case models.ItemTypeClient:
		if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", itemID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check client: %w", err)
		}
	default:
		return ErrInvalidItemType
	}
	if count == 0 {
		return ErrItemNotFound
	}
	return nil
}
