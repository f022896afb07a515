package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/aqarlink/crm/pkg/api/errors"
	"github.com/aqarlink/crm/pkg/audit"
	"github.com/aqarlink/crm/pkg/dashboard"
	"github.com/aqarlink/crm/pkg/leadlifecycle"
	"github.com/aqarlink/crm/pkg/metrics"
	"github.com/aqarlink/crm/pkg/models"
)

// LifecycleHandler handles lead status transitions and conversion
type LifecycleHandler struct {
	service     *leadlifecycle.Service
	dashboards  *dashboard.Service
	auditLogger *audit.Service
	metrics     *metrics.Metrics
	validator   *validator.Validate
}

// NewLifecycleHandler creates a new lifecycle handler
func NewLifecycleHandler(service *leadlifecycle.Service, dashboards *dashboard.Service, auditLogger *audit.Service, m *metrics.Metrics) *LifecycleHandler {
	return &LifecycleHandler{
		service:     service,
		dashboards:  dashboards,
		auditLogger: auditLogger,
		metrics:     m,
		validator:   validator.New(),
	}
}

// UpdateStatus godoc
// @Summary Update a lead's status
// @Description Any status is reachable from any other except converted, which is final
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body models.UpdateStatusRequest true "New status"
// @Success 200 {object} models.Lead
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/{id}/status [put]
func (h *LifecycleHandler) UpdateStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Lead ID must be a valid number")
	}

	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	lead, err := h.service.UpdateStatus(ctx, currentUserID(c), id, models.LeadStatus(req.Status), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, leadlifecycle.ErrLeadNotFound):
			return apierrors.NotFoundError(c)
		case errors.Is(err, leadlifecycle.ErrAlreadyConverted):
			return apierrors.ConflictError(c, "Converted leads cannot change status")
		case errors.Is(err, leadlifecycle.ErrLeadArchived):
			return apierrors.ConflictError(c, "Archived leads cannot change status")
		}
		return apierrors.DatabaseError(c, err)
	}

	h.dashboards.Invalidate(ctx)

	return c.JSON(http.StatusOK, models.OK(lead))
}

// Convert godoc
// @Summary Convert a lead into a client
// @Description Atomically creates the client, marks the lead converted and links the two
// @Tags Leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} leadlifecycle.ConversionResult
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/{id}/convert [post]
func (h *LifecycleHandler) Convert(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Lead ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	result, err := h.service.Convert(ctx, currentUserID(c), id)
	if err != nil {
		switch {
		case errors.Is(err, leadlifecycle.ErrLeadNotFound):
			return apierrors.NotFoundError(c)
		case errors.Is(err, leadlifecycle.ErrAlreadyConverted):
			return apierrors.ConflictError(c, "Lead is already converted")
		case errors.Is(err, leadlifecycle.ErrLeadArchived):
			return apierrors.ConflictError(c, "Archived leads cannot be converted")
		}
		return apierrors.DatabaseError(c, err)
	}

	h.metrics.LeadsConverted.Inc()
	h.dashboards.Invalidate(ctx)
	_ = h.auditLogger.LogLeadAction(ctx, currentUserID(c), models.AuditLeadConvert, id, "")

	return c.JSON(http.StatusOK, models.OK(result))
}

// StatusHistory godoc
// @Summary Get a lead's status transition history
// @Tags Leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/leads/{id}/status-history [get]
func (h *LifecycleHandler) StatusHistory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Lead ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	history, err := h.service.GetStatusHistory(ctx, id)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(history))
}
