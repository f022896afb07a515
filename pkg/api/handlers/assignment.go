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
	"github.com/aqarlink/crm/pkg/email"
	"github.com/aqarlink/crm/pkg/leadassignment"
	"github.com/aqarlink/crm/pkg/metrics"
	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/notifications"
)

// AssignmentHandler handles manual assignment and round-robin distribution
type AssignmentHandler struct {
	service       *leadassignment.Service
	notifications *notifications.Service
	emailService  *email.Service
	auditLogger   *audit.Service
	metrics       *metrics.Metrics
	validator     *validator.Validate
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(service *leadassignment.Service, notificationSvc *notifications.Service, emailSvc *email.Service, auditLogger *audit.Service, m *metrics.Metrics) *AssignmentHandler {
	return &AssignmentHandler{
		service:       service,
		notifications: notificationSvc,
		emailService:  emailSvc,
		auditLogger:   auditLogger,
		metrics:       m,
		validator:     validator.New(),
	}
}

// Assign godoc
// @Summary Assign a lead to a user
// @Tags Assignment
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body models.AssignLeadRequest true "Assignee"
// @Success 200 {object} leadassignment.AssignmentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/{id}/assign [post]
func (h *AssignmentHandler) Assign(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Lead ID must be a valid number")
	}

	var req models.AssignLeadRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	result, err := h.service.AssignLead(ctx, id, req.UserID, currentUserID(c), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, leadassignment.ErrLeadNotFound),
			errors.Is(err, leadassignment.ErrUserNotFound):
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	h.metrics.RecordAssignment("manual")
	h.notifyAssignee(ctx, result)
	_ = h.auditLogger.LogLeadAction(ctx, currentUserID(c), models.AuditLeadAssign, id, result.UserName)

	return c.JSON(http.StatusOK, models.OK(result))
}

// Distribute godoc
// @Summary Distribute unassigned leads round-robin
// @Description Deterministic: leads ordered by creation, users by ID; each user k gets lead k mod n
// @Tags Assignment
// @Produce json
// @Success 200 {object} leadassignment.DistributionSummary
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/distribute [post]
func (h *AssignmentHandler) Distribute(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	summary, err := h.service.DistributeUnassigned(ctx, currentUserID(c))
	if err != nil {
		if errors.Is(err, leadassignment.ErrNoSalesUsers) {
			return apierrors.ConflictError(c, "No active sales users available for assignment")
		}
		return apierrors.DatabaseError(c, err)
	}

	for i := 0; i < summary.AssignedCount; i++ {
		h.metrics.RecordAssignment("auto")
	}

	return c.JSON(http.StatusOK, models.OK(summary))
}

// LeadHistory godoc
// @Summary Get a lead's assignment history
// @Tags Assignment
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/leads/{id}/assignments [get]
func (h *AssignmentHandler) LeadHistory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Lead ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	history, err := h.service.GetLeadHistory(ctx, id)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(history))
}

// notifyAssignee stores a notification and sends a best-effort email to
// the new owner of a lead.
func (h *AssignmentHandler) notifyAssignee(ctx context.Context, result *leadassignment.AssignmentResponse) {
	if result.UserEmail == "" {
		return
	}

	_, err := h.notifications.Notify(ctx, result.UserEmail, "lead_assigned", models.NotificationHigh, models.JSONMap{
		"lead_id":   result.LeadID,
		"lead_name": result.LeadName,
	})
	if err != nil {
		// Notification failure must not fail the assignment.
		return
	}

	if h.emailService != nil {
		if err := h.emailService.SendLeadAssignedEmail(result.UserEmail, result.UserName, result.LeadName, result.LeadPhone, result.LeadID); err == nil {
			h.metrics.NotificationsSent.WithLabelValues("email").Inc()
		}
	}
}
