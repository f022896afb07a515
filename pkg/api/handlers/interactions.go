package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/aqarlink/crm/pkg/api/errors"
	"github.com/aqarlink/crm/pkg/interactions"
	"github.com/aqarlink/crm/pkg/models"
)

// InteractionHandler handles interaction logging and history
type InteractionHandler struct {
	service   *interactions.Service
	validator *validator.Validate
}

// NewInteractionHandler creates a new interaction handler
func NewInteractionHandler(service *interactions.Service) *InteractionHandler {
	return &InteractionHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Create godoc
// @Summary Log an interaction against a lead or client
// @Description Outcome values from older clients are mapped to the canonical vocabulary
// @Tags Interactions
// @Accept json
// @Produce json
// @Param request body models.CreateInteractionRequest true "Interaction data"
// @Success 201 {object} models.Interaction
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/interactions [post]
func (h *InteractionHandler) Create(c echo.Context) error {
	var req models.CreateInteractionRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	interaction, err := h.service.Log(ctx, req, currentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, interactions.ErrItemNotFound):
			return apierrors.NotFoundError(c)
		case errors.Is(err, interactions.ErrInvalidItemType):
			return apierrors.BadRequest(c, "item_type must be lead or client")
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusCreated, models.OK(interaction))
}

// AddNote godoc
// @Summary Attach a free-form note to a lead or client
// @Tags Interactions
// @Accept json
// @Produce json
// @Param type path string true "Item type (lead or client)"
// @Param id path int true "Item ID"
// @Param request body noteRequest true "Note text"
// @Success 201 {object} models.Interaction
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/interactions/{type}/{id}/notes [post]
func (h *InteractionHandler) AddNote(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Item ID must be a valid number")
	}

	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	interaction, err := h.service.AddNote(ctx, c.Param("type"), id, req.Note, currentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, interactions.ErrItemNotFound):
			return apierrors.NotFoundError(c)
		case errors.Is(err, interactions.ErrInvalidItemType):
			return apierrors.BadRequest(c, "item_type must be lead or client")
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusCreated, models.OK(interaction))
}

type noteRequest struct {
	Note string `json:"note" validate:"required"`
}

// History godoc
// @Summary Get interaction history for a lead or client, newest first
// @Tags Interactions
// @Produce json
// @Param type path string true "Item type (lead or client)"
// @Param id path int true "Item ID"
// @Param limit query int false "Max entries (default 100)"
// @Success 200 {object} models.Envelope
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/interactions/{type}/{id} [get]
func (h *InteractionHandler) History(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Item ID must be a valid number")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	history, err := h.service.History(ctx, models.InteractionItemType(c.Param("type")), id, limit)
	if err != nil {
		if errors.Is(err, interactions.ErrInvalidItemType) {
			return apierrors.BadRequest(c, "item_type must be lead or client")
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(history))
}

// Recent godoc
// @Summary Get the authenticated user's recent interactions
// @Tags Interactions
// @Produce json
// @Param limit query int false "Max entries (default 20)"
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/interactions/recent [get]
func (h *InteractionHandler) Recent(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	recent, err := h.service.RecentByUser(ctx, currentUserID(c), limit)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(recent))
}
