package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aqarlink/crm/pkg/models"
)

// RequireRole gates a route to the given roles. It expects the JWT
// middleware to have run first.
func RequireRole(roles ...models.UserRole) echo.MiddlewareFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextUserRole).(models.UserRole)
			if !ok {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Authentication required",
				})
			}
			if !allowed[role] {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "forbidden",
					Message: "Insufficient role for this action",
				})
			}
			return next(c)
		}
	}
}

// RequireAdmin is shorthand for the admin-only routes.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(models.RoleAdmin)
}
