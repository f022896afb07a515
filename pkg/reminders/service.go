package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

var (
	// ErrReminderNotFound is returned when the reminder does not exist.
	ErrReminderNotFound = errors.New("reminder not found")
	// ErrRemindAtInPast is returned when remind_at is not strictly in
	// the future.
	ErrRemindAtInPast = errors.New("remind_at must be in the future")
	// ErrLeadNotFound is returned when the linked lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrNotOwner is returned when a user touches another user's
	// reminder.
	ErrNotOwner = errors.New("reminder belongs to another user")
)

// Service manages follow-up reminders.
type Service struct {
	db *gorm.DB
}

// NewService creates a new reminder service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create schedules a reminder for the given user. RemindAt is validated
// against the clock at call time, not at delivery time.
func (s *Service) Create(ctx context.Context, userID uint, req models.CreateReminderRequest) (*models.Reminder, error) {
	if !req.RemindAt.After(time.Now()) {
		return nil, ErrRemindAtInPast
	}

	if req.LeadID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", *req.LeadID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check lead: %w", err)
		}
		if count == 0 {
			return nil, ErrLeadNotFound
		}
	}

	reminder := models.Reminder{
		UserID:   userID,
		LeadID:   req.LeadID,
		Note:     req.Note,
		RemindAt: req.RemindAt,
		Status:   models.ReminderPending,
	}
	if err := s.db.WithContext(ctx).Create(&reminder).Error; err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	return &reminder, nil
}

// MarkDone completes a reminder. Only the owning user may complete it.
func (s *Service) MarkDone(ctx context.Context, userID, reminderID uint) (*models.Reminder, error) {
	var reminder models.Reminder
	if err := s.db.WithContext(ctx).First(&reminder, reminderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("failed to fetch reminder: %w", err)
	}
	if reminder.UserID != userID {
		return nil, ErrNotOwner
	}
	if reminder.Status == models.ReminderDone {
		return &reminder, nil
	}

	now := time.Now()
	reminder.Status = models.ReminderDone
	reminder.DoneAt = &now
	if err := s.db.WithContext(ctx).Save(&reminder).Error; err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}
	return &reminder, nil
}

// Update reschedules or rewords a reminder. Only the owning user may
// update it, and a new remind_at must still be in the future. Moving
// remind_at clears the notified stamp so the scheduler fires again.
func (s *Service) Update(ctx context.Context, userID, reminderID uint, req models.UpdateReminderRequest) (*models.Reminder, error) {
	var reminder models.Reminder
	if err := s.db.WithContext(ctx).First(&reminder, reminderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("failed to fetch reminder: %w", err)
	}
	if reminder.UserID != userID {
		return nil, ErrNotOwner
	}

	if req.Note != nil {
		reminder.Note = *req.Note
	}
	if req.RemindAt != nil {
		if !req.RemindAt.After(time.Now()) {
			return nil, ErrRemindAtInPast
		}
		reminder.RemindAt = *req.RemindAt
		reminder.NotifiedAt = nil
	}

	if err := s.db.WithContext(ctx).Save(&reminder).Error; err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}
	return &reminder, nil
}

// ListForUser returns a user's reminders, pending first, soonest first.
// When pendingOnly is set, completed reminders are excluded.
func (s *Service) ListForUser(ctx context.Context, userID uint, pendingOnly bool) ([]models.Reminder, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if pendingOnly {
		query = query.Where("status = ?", models.ReminderPending)
	}

	var reminders []models.Reminder
	if err := query.Order("status ASC, remind_at ASC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reminders: %w", err)
	}
	return reminders, nil
}

// TodayForUser returns a user's pending reminders due today, in the
// server's local day.
func (s *Service) TodayForUser(ctx context.Context, userID uint) ([]models.Reminder, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour)

	var reminders []models.Reminder
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND remind_at >= ? AND remind_at < ?",
			userID, models.ReminderPending, start, end).
		Order("remind_at ASC").
		Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reminders: %w", err)
	}
	return reminders, nil
}

// DueUnnotified returns pending reminders whose remind_at has passed and
// that have not been notified yet. The scheduler calls this.
func (s *Service) DueUnnotified(ctx context.Context) ([]models.Reminder, error) {
	var reminders []models.Reminder
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("status = ? AND remind_at <= ? AND notified_at IS NULL", models.ReminderPending, time.Now()).
		Order("remind_at ASC").
		Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch due reminders: %w", err)
	}
	return reminders, nil
}

// MarkNotified stamps a reminder so the scheduler does not notify it
// again.
func (s *Service) MarkNotified(ctx context.Context, reminderID uint) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("id = ?", reminderID).
		Update("notified_at", &now)
	if result.Error != nil {
		return fmt.Errorf("failed to mark reminder notified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrReminderNotFound
	}
	return nil
}
