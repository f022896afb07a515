package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aqarlink/crm/pkg/middleware"
	"github.com/aqarlink/crm/pkg/models"
)

// currentUserID reads the authenticated user's ID set by the JWT
// middleware. Returns 0 when the request is unauthenticated.
func currentUserID(c echo.Context) uint {
	if id, ok := c.Get(middleware.ContextUserID).(uint); ok {
		return id
	}
	return 0
}

// currentUser reads the full user row loaded by the JWT middleware.
func currentUser(c echo.Context) *models.User {
	if u, ok := c.Get(middleware.ContextUser).(*models.User); ok {
		return u
	}
	return nil
}

// currentUserEmail reads the authenticated user's email.
func currentUserEmail(c echo.Context) string {
	if email, ok := c.Get(middleware.ContextUserEmail).(string); ok {
		return email
	}
	return ""
}

// userIDPtr returns the authenticated user's ID as a pointer for audit
// rows, or nil when unauthenticated.
func userIDPtr(c echo.Context) *uint {
	if id := currentUserID(c); id != 0 {
		return &id
	}
	return nil
}

// parseIDParam parses a numeric path parameter.
func parseIDParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
