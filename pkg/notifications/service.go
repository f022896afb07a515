package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

// ErrNotificationNotFound is returned when the notification does not
// exist or belongs to another user.
var ErrNotificationNotFound = errors.New("notification not found")

const defaultListLimit = 50

// Service manages write-once user notifications. After creation only
// the read flag and the SSE delivery stamp mutate.
type Service struct {
	db  *gorm.DB
	hub *Hub
}

// NewService creates a new notification service. hub may be nil, in
// which case notifications are stored without live delivery.
func NewService(db *gorm.DB, hub *Hub) *Service {
	return &Service{db: db, hub: hub}
}

// Notify stores a notification for the target user and attempts live
// delivery over SSE. The row records whether a live push happened.
func (s *Service) Notify(ctx context.Context, targetEmail, notifType string, priority models.NotificationPriority, data models.JSONMap) (*models.Notification, error) {
	notification := models.Notification{
		TargetUserEmail: strings.ToLower(targetEmail),
		Type:            notifType,
		Priority:        priority,
		Data:            data,
	}
	if notification.Priority == "" {
		notification.Priority = models.NotificationNormal
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.hub != nil && s.hub.Push(notification) {
		notification.SentViaSSE = true
		if err := s.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("id = ?", notification.ID).
			Update("sent_via_sse", true).Error; err != nil {
			return nil, fmt.Errorf("failed to stamp sse delivery: %w", err)
		}
	}

	return &notification, nil
}

// ListForUser returns a user's notifications, newest first. When
// unreadOnly is set, read notifications are excluded.
func (s *Service) ListForUser(ctx context.Context, email string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	query := s.db.WithContext(ctx).Where("target_user_email = ?", strings.ToLower(email))
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount returns the number of unread notifications for a user.
func (s *Service) UnreadCount(ctx context.Context, email string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("target_user_email = ? AND is_read = ?", strings.ToLower(email), false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, email string, id uint) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND target_user_email = ?", id, strings.ToLower(email)).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flags all of a user's unread notifications as read and
// returns how many were affected.
func (s *Service) MarkAllRead(ctx context.Context, email string) (int64, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("target_user_email = ? AND is_read = ?", strings.ToLower(email), false).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}
