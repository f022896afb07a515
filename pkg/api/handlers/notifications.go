package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/aqarlink/crm/pkg/api/errors"
	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/notifications"
)

// NotificationHandler handles notification listing and the SSE stream
type NotificationHandler struct {
	service *notifications.Service
	hub     *notifications.Hub
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service *notifications.Service, hub *notifications.Hub) *NotificationHandler {
	return &NotificationHandler{service: service, hub: hub}
}

// List godoc
// @Summary List the authenticated user's notifications, newest first
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	unreadOnly := c.QueryParam("unread") == "true"
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	list, err := h.service.ListForUser(ctx, currentUserEmail(c), unreadOnly, limit)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(list))
}

// UnreadCount godoc
// @Summary Count the authenticated user's unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	count, err := h.service.UnreadCount(ctx, currentUserEmail(c))
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(map[string]int64{"unread": count}))
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Notification ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.service.MarkRead(ctx, currentUserEmail(c), id); err != nil {
		if errors.Is(err, notifications.ErrNotificationNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.Envelope{Success: true, Message: "Notification marked read"})
}

// MarkAllRead godoc
// @Summary Mark all of the authenticated user's notifications as read
// @Tags Notifications
// @Produce json
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	updated, err := h.service.MarkAllRead(ctx, currentUserEmail(c))
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(map[string]int64{"marked_read": updated}))
}

// Stream godoc
// @Summary Subscribe to live notifications over Server-Sent Events
// @Description Authenticated via Authorization header or ?token= query parameter
// @Tags Notifications
// @Produce text/event-stream
// @Security BearerAuth
// @Router /api/v1/notifications/stream [get]
func (h *NotificationHandler) Stream(c echo.Context) error {
	email := currentUserEmail(c)
	if email == "" {
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error: "unauthorized",
		})
	}
	return h.hub.Serve(c, email)
}
