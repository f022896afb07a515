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
	"github.com/aqarlink/crm/pkg/leaddedup"
	"github.com/aqarlink/crm/pkg/leadlifecycle"
	"github.com/aqarlink/crm/pkg/leads"
	"github.com/aqarlink/crm/pkg/metrics"
	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/policy"
)

// LeadHandler handles lead CRUD and duplicate checking
type LeadHandler struct {
	service     *leads.Service
	lifecycle   *leadlifecycle.Service
	dedup       *leaddedup.Service
	auditLogger *audit.Service
	metrics     *metrics.Metrics
	validator   *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(service *leads.Service, lifecycle *leadlifecycle.Service, dedup *leaddedup.Service, auditLogger *audit.Service, m *metrics.Metrics) *LeadHandler {
	return &LeadHandler{
		service:     service,
		lifecycle:   lifecycle,
		dedup:       dedup,
		auditLogger: auditLogger,
		metrics:     m,
		validator:   validator.New(),
	}
}

// List godoc
// @Summary List leads
// @Description List leads with filtering, search and pagination
// @Tags Leads
// @Produce json
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param assigned_to query int false "Filter by assigned user"
// @Param unassigned query bool false "Only unassigned leads"
// @Param search query string false "Search name, phone, email, company"
// @Param archived query bool false "Show archived leads"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} models.Envelope
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads [get]
func (h *LeadHandler) List(c echo.Context) error {
	var req models.LeadListRequest
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

	return c.JSON(http.StatusOK, models.OKPage(result.Leads, result.Page, result.Limit, result.Total))
}

// Get godoc
// @Summary Get a lead
// @Tags Leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} models.Lead
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/{id} [get]
func (h *LeadHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Lead ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lead, err := h.service.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, leads.ErrLeadNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(lead))
}

// Create godoc
// @Summary Create a lead
// @Description Create a lead; phone is normalized and the score computed on the way in
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body models.CreateLeadRequest true "Lead data"
// @Success 201 {object} models.Lead
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads [post]
func (h *LeadHandler) Create(c echo.Context) error {
	var req models.CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	lead, err := h.service.Create(ctx, req, currentUserID(c))
	if err != nil {
		if errors.Is(err, leads.ErrInvalidPhone) {
			return apierrors.BadRequest(c, "Phone number is invalid: at least 10 digits are required")
		}
		return apierrors.DatabaseError(c, err)
	}

	h.metrics.LeadsCreated.Inc()
	_ = h.auditLogger.LogLeadAction(ctx, currentUserID(c), models.AuditLeadCreate, lead.ID, lead.Name)

	return c.JSON(http.StatusCreated, models.OK(lead))
}

// Update godoc
// @Summary Update a lead
// @Description Patch lead fields; sales users may only update their own leads
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body models.UpdateLeadRequest true "Fields to update"
// @Success 200 {object} models.Lead
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/{id} [put]
func (h *LeadHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Lead ID must be a valid number")
	}

	var req models.UpdateLeadRequest
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
		if errors.Is(err, leads.ErrLeadNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	if !policy.CanPerform(policy.ActionLeadUpdate, currentUser(c), &policy.Resource{
		CreatedByID:  existing.CreatedByID,
		AssignedToID: existing.AssignedToID,
	}) {
		return apierrors.ForbiddenError(c)
	}

	lead, err := h.service.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, leads.ErrInvalidPhone) {
			return apierrors.BadRequest(c, "Phone number is invalid: at least 10 digits are required")
		}
		return apierrors.DatabaseError(c, err)
	}

	_ = h.auditLogger.LogLeadAction(ctx, currentUserID(c), models.AuditLeadUpdate, lead.ID, lead.Name)

	return c.JSON(http.StatusOK, models.OK(lead))
}

// Archive godoc
// @Summary Archive a lead
// @Description Soft-delete: the lead disappears from default listings but keeps its history
// @Tags Leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/{id} [delete]
func (h *LeadHandler) Archive(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Lead ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.lifecycle.Archive(ctx, currentUserID(c), id); err != nil {
		if errors.Is(err, leadlifecycle.ErrLeadNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	_ = h.auditLogger.LogLeadAction(ctx, currentUserID(c), models.AuditLeadArchive, id, "")

	return c.JSON(http.StatusOK, models.Envelope{Success: true, Message: "Lead archived"})
}

// CheckDuplicates godoc
// @Summary Check a phone/email pair for duplicates
// @Description Exact match against existing leads after phone normalization
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body models.DuplicateCheckRequest true "Candidate contact"
// @Success 200 {object} leaddedup.CheckResult
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/check-duplicates [post]
func (h *LeadHandler) CheckDuplicates(c echo.Context) error {
	var req models.DuplicateCheckRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if req.Phone == "" && req.Email == "" {
		return apierrors.BadRequest(c, "Provide a phone or an email to check")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	result, err := h.dedup.Check(ctx, req.Phone, req.Email)
	if err != nil {
		// Lookup failures must not block lead creation: report no
		// duplicates and surface the error for the caller to log.
		c.Logger().Warnf("duplicate check failed: %v", err)
		return c.JSON(http.StatusOK, models.OK(&leaddedup.CheckResult{}))
	}

	return c.JSON(http.StatusOK, models.OK(result))
}

// BulkCheckDuplicates godoc
// @Summary Check many phones/emails for duplicates
// @Description Used by the import preview to classify candidate rows
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body models.BulkDuplicateCheckRequest true "Candidate arrays"
// @Success 200 {object} leaddedup.BulkResult
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/bulk-check-duplicates [post]
func (h *LeadHandler) BulkCheckDuplicates(c echo.Context) error {
	var req models.BulkDuplicateCheckRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	result, err := h.dedup.BulkCheck(ctx, req.Phones, req.Emails)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(result))
}

// ListUsers godoc
// @Summary List active users for assignment dropdowns
// @Tags Leads
// @Produce json
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/leads/users [get]
func (h *LeadHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.service.ListUsers(ctx)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(users))
}
