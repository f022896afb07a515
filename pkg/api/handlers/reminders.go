package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/aqarlink/crm/pkg/api/errors"
	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/reminders"
)

// ReminderHandler handles follow-up reminders
type ReminderHandler struct {
	service   *reminders.Service
	validator *validator.Validate
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(service *reminders.Service) *ReminderHandler {
	return &ReminderHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Create godoc
// @Summary Schedule a follow-up reminder
// @Description remind_at must be strictly in the future
// @Tags Reminders
// @Accept json
// @Produce json
// @Param request body models.CreateReminderRequest true "Reminder data"
// @Success 201 {object} models.Reminder
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/follow-ups [post]
func (h *ReminderHandler) Create(c echo.Context) error {
	var req models.CreateReminderRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	reminder, err := h.service.Create(ctx, currentUserID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, reminders.ErrRemindAtInPast):
			return apierrors.BadRequest(c, "remind_at must be in the future")
		case errors.Is(err, reminders.ErrLeadNotFound):
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusCreated, models.OK(reminder))
}

// Update godoc
// @Summary Reschedule or reword a reminder
// @Description Only the reminder's owner may update it
// @Tags Reminders
// @Accept json
// @Produce json
// @Param id path int true "Reminder ID"
// @Param request body models.UpdateReminderRequest true "Fields to update"
// @Success 200 {object} models.Reminder
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/follow-ups/{id} [put]
func (h *ReminderHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Reminder ID must be a valid number")
	}

	var req models.UpdateReminderRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	reminder, err := h.service.Update(ctx, currentUserID(c), id, req)
	if err != nil {
		switch {
		case errors.Is(err, reminders.ErrRemindAtInPast):
			return apierrors.BadRequest(c, "remind_at must be in the future")
		case errors.Is(err, reminders.ErrReminderNotFound):
			return apierrors.NotFoundError(c)
		case errors.Is(err, reminders.ErrNotOwner):
			return apierrors.ForbiddenError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(reminder))
}

// MarkDone godoc
// @Summary Mark a reminder as done
// @Description Idempotent; only the reminder's owner may complete it
// @Tags Reminders
// @Produce json
// @Param id path int true "Reminder ID"
// @Success 200 {object} models.Reminder
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/follow-ups/{id}/done [put]
func (h *ReminderHandler) MarkDone(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Reminder ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	reminder, err := h.service.MarkDone(ctx, currentUserID(c), id)
	if err != nil {
		switch {
		case errors.Is(err, reminders.ErrReminderNotFound):
			return apierrors.NotFoundError(c)
		case errors.Is(err, reminders.ErrNotOwner):
			return apierrors.ForbiddenError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(reminder))
}

// List godoc
// @Summary List the authenticated user's reminders
// @Tags Reminders
// @Produce json
// @Param pending query bool false "Only pending reminders"
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/follow-ups [get]
func (h *ReminderHandler) List(c echo.Context) error {
	pendingOnly := c.QueryParam("pending") == "true"

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	list, err := h.service.ListForUser(ctx, currentUserID(c), pendingOnly)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(list))
}

// Today godoc
// @Summary List the authenticated user's reminders due today
// @Tags Reminders
// @Produce json
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/follow-ups/today [get]
func (h *ReminderHandler) Today(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	list, err := h.service.TodayForUser(ctx, currentUserID(c))
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(list))
}
