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
	"github.com/aqarlink/crm/pkg/auth"
	"github.com/aqarlink/crm/pkg/email"
	"github.com/aqarlink/crm/pkg/metrics"
	"github.com/aqarlink/crm/pkg/middleware"
	"github.com/aqarlink/crm/pkg/models"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	service      *auth.Service
	auditLogger  *audit.Service
	emailService *email.Service
	metrics      *metrics.Metrics
	validator    *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *auth.Service, auditLogger *audit.Service, emailService *email.Service, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		service:      service,
		auditLogger:  auditLogger,
		emailService: emailService,
		metrics:      m,
		validator:    validator.New(),
	}
}

// Register godoc
// @Summary Register a new user
// @Description Create a new sales user account with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration data"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	resp, err := h.service.Register(ctx, req)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return apierrors.ConflictError(c, "User with this email already exists")
		}
		return apierrors.InternalError(c, err)
	}

	if h.emailService != nil {
		if err := h.emailService.SendWelcomeEmail(resp.User.Email, resp.User.Name); err != nil {
			c.Logger().Warnf("welcome email failed for %s: %v", resp.User.Email, err)
		}
	}

	ip, ua := audit.RequestContext(c)
	_ = h.auditLogger.LogUserAction(ctx, resp.User.ID, models.AuditUserRegister, ip, ua)

	return c.JSON(http.StatusCreated, models.OK(resp))
}

// Login godoc
// @Summary Authenticate a user
// @Description Exchange email and password for a JWT
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	resp, err := h.service.Login(ctx, req)
	if err != nil {
		h.metrics.RecordLogin(false)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "invalid_credentials",
				Message: "Invalid email or password",
			})
		}
		if errors.Is(err, auth.ErrUserDisabled) {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "account_disabled",
				Message: "This account has been disabled",
			})
		}
		return apierrors.InternalError(c, err)
	}

	h.metrics.RecordLogin(true)
	ip, ua := audit.RequestContext(c)
	_ = h.auditLogger.LogUserAction(ctx, resp.User.ID, models.AuditUserLogin, ip, ua)

	return c.JSON(http.StatusOK, models.OK(resp))
}

// Me godoc
// @Summary Get the authenticated user
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.service.GetUser(ctx, currentUserID(c))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(user))
}

// Logout godoc
// @Summary Log out
// @Description Revoke the current JWT until it expires
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.Envelope
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token, _ := c.Get(middleware.ContextToken).(string)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error: "missing_token",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Logout(ctx, token); err != nil {
		return apierrors.InternalError(c, err)
	}

	ip, ua := audit.RequestContext(c)
	_ = h.auditLogger.LogUserAction(ctx, currentUserID(c), models.AuditUserLogout, ip, ua)

	return c.JSON(http.StatusOK, models.Envelope{Success: true, Message: "Logged out"})
}
