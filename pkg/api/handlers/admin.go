package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	apierrors "github.com/aqarlink/crm/pkg/api/errors"
	"github.com/aqarlink/crm/pkg/audit"
	"github.com/aqarlink/crm/pkg/backup"
	"github.com/aqarlink/crm/pkg/models"
)

// AdminHandler handles admin-only endpoints: user management, audit log
// access and backup triggers
type AdminHandler struct {
	db          *gorm.DB
	auditLogger *audit.Service
	backups     *backup.Service
	validator   *validator.Validate
}

// NewAdminHandler creates a new admin handler. backups may be nil when
// backups are not configured.
func NewAdminHandler(db *gorm.DB, auditLogger *audit.Service, backups *backup.Service) *AdminHandler {
	return &AdminHandler{
		db:          db,
		auditLogger: auditLogger,
		backups:     backups,
		validator:   validator.New(),
	}
}

// ListUsers godoc
// @Summary List all users including inactive ones
// @Tags Admin
// @Produce json
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var users []models.User
	if err := h.db.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(users))
}

// updateUserRequest patches a user's role or active flag.
type updateUserRequest struct {
	Role     *string `json:"role" validate:"omitempty,oneof=admin sales_manager sales viewer"`
	IsActive *bool   `json:"is_active"`
}

// UpdateUser godoc
// @Summary Change a user's role or activate/deactivate the account
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body updateUserRequest true "Fields to update"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/admin/users/{id} [put]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "User ID must be a valid number")
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	updates := map[string]interface{}{}
	if req.Role != nil {
		updates["role"] = models.UserRole(*req.Role)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return apierrors.BadRequest(c, "Nothing to update")
	}

	if err := h.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(user))
}

// AuditLog godoc
// @Summary List audit log entries, newest first
// @Tags Admin
// @Produce json
// @Param user_id query int false "Filter by acting user"
// @Param action query string false "Filter by action"
// @Param since query string false "Only entries after this RFC3339 timestamp"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 50)"
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/admin/audit [get]
func (h *AdminHandler) AuditLog(c echo.Context) error {
	req := audit.ListRequest{
		Action: models.AuditAction(c.QueryParam("action")),
	}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return apierrors.BadRequest(c, "user_id must be a valid number")
		}
		uid := uint(id)
		req.UserID = &uid
	}
	if v := c.QueryParam("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apierrors.BadRequest(c, "since must be an RFC3339 timestamp")
		}
		req.Since = &since
	}
	req.Page, _ = strconv.Atoi(c.QueryParam("page"))
	req.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 50
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	entries, total, err := h.auditLogger.List(ctx, req)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OKPage(entries, req.Page, req.Limit, total))
}

// TriggerBackup godoc
// @Summary Run a database backup now
// @Tags Admin
// @Produce json
// @Success 200 {object} backup.Result
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/admin/backups [post]
func (h *AdminHandler) TriggerBackup(c echo.Context) error {
	if h.backups == nil {
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "backups_disabled",
			Message: "Backups are not configured on this deployment",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Minute)
	defer cancel()

	result, err := h.backups.CreateBackup(ctx)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	_ = h.auditLogger.Log(ctx, audit.Entry{
		UserID:       userIDPtr(c),
		Action:       models.AuditBackupCreate,
		ResourceType: "backup",
		Description:  result.Filename,
	})

	return c.JSON(http.StatusOK, models.OK(result))
}

// BackupHistory godoc
// @Summary List recent backup records
// @Tags Admin
// @Produce json
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {object} models.Envelope
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/admin/backups [get]
func (h *AdminHandler) BackupHistory(c echo.Context) error {
	if h.backups == nil {
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "backups_disabled",
			Message: "Backups are not configured on this deployment",
		})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	records, err := h.backups.History(ctx, limit)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(records))
}
