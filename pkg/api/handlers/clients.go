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
	"github.com/aqarlink/crm/pkg/audit"
	"github.com/aqarlink/crm/pkg/clients"
	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/policy"
)

// ClientHandler handles client CRUD
type ClientHandler struct {
	service     *clients.Service
	auditLogger *audit.Service
	validator   *validator.Validate
}

// NewClientHandler creates a new client handler
func NewClientHandler(service *clients.Service, auditLogger *audit.Service) *ClientHandler {
	return &ClientHandler{
		service:     service,
		auditLogger: auditLogger,
		validator:   validator.New(),
	}
}

// List godoc
// @Summary List clients
// @Tags Clients
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search name, phone, email, company"
// @Param archived query bool false "Show archived clients"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/clients [get]
func (h *ClientHandler) List(c echo.Context) error {
	var req clients.ListRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid query parameters")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	result, err := h.service.List(ctx, req)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OKPage(result.Clients, result.Page, result.Limit, result.Total))
}

// Get godoc
// @Summary Get a client
// @Tags Clients
// @Produce json
// @Param id path int true "Client ID"
// @Success 200 {object} models.Client
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/clients/{id} [get]
func (h *ClientHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Client ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	client, err := h.service.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(client))
}

// Create godoc
// @Summary Create a client directly (without converting a lead)
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body models.CreateClientRequest true "Client data"
// @Success 201 {object} models.Client
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/clients [post]
func (h *ClientHandler) Create(c echo.Context) error {
	var req models.CreateClientRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	client, err := h.service.Create(ctx, req, currentUserID(c))
	if err != nil {
		if errors.Is(err, clients.ErrInvalidPhone) {
			return apierrors.BadRequest(c, "Phone number is invalid: at least 10 digits are required")
		}
		return apierrors.DatabaseError(c, err)
	}

	_ = h.auditLogger.Log(ctx, audit.Entry{
		UserID:       userIDPtr(c),
		Action:       models.AuditClientCreate,
		ResourceType: "client",
		ResourceID:   strconv.FormatUint(uint64(client.ID), 10),
		Description:  client.Name,
	})

	return c.JSON(http.StatusCreated, models.OK(client))
}

// Update godoc
// @Summary Update a client
// @Description Patch client fields; sales users may only update their own clients
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path int true "Client ID"
// @Param request body clients.UpdateRequest true "Fields to update"
// @Success 200 {object} models.Client
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/clients/{id} [put]
func (h *ClientHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Client ID must be a valid number")
	}

	var req clients.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	existing, err := h.service.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	if !policy.CanPerform(policy.ActionClientUpdate, currentUser(c), &policy.Resource{
		CreatedByID:  existing.CreatedByID,
		AssignedToID: existing.AssignedToID,
	}) {
		return apierrors.ForbiddenError(c)
	}

	client, err := h.service.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, clients.ErrInvalidPhone) {
			return apierrors.BadRequest(c, "Phone number is invalid: at least 10 digits are required")
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(client))
}

// Archive godoc
// @Summary Archive a client
// @Tags Clients
// @Produce json
// @Param id path int true "Client ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/clients/{id} [delete]
func (h *ClientHandler) Archive(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Client ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.service.Archive(ctx, id, currentUserID(c)); err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	_ = h.auditLogger.Log(ctx, audit.Entry{
		UserID:       userIDPtr(c),
		Action:       models.AuditClientArchive,
		ResourceType: "client",
		ResourceID:   strconv.FormatUint(uint64(id), 10),
	})

	return c.JSON(http.StatusOK, models.Envelope{Success: true, Message: "Client archived"})
}
