package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/auth"
	"github.com/aqarlink/crm/pkg/models"
)

// Context keys set by the JWT middleware.
const (
	ContextToken     = "token"
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
	ContextUser      = "user"
)

// JWTMiddleware authenticates requests without blacklist or database
// checks. Used in tests and for endpoints that only need the claims.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return JWTMiddlewareWithBlacklist(secret, nil, nil)
}

// JWTMiddlewareWithBlacklist authenticates requests, rejects revoked
// tokens and loads the user row so downstream policy checks see the
// current role and active flag.
func JWTMiddlewareWithBlacklist(secret string, blacklist *auth.TokenBlacklist, db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "missing_token",
					Message: "Authorization header is required",
				})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token_format",
					Message: "Authorization header must be 'Bearer {token}'",
				})
			}

			return authenticate(c, next, parts[1], secret, blacklist, db)
		}
	}
}

// JWTFromQueryOrHeader also accepts the token as a query parameter.
// The SSE stream and file downloads cannot set headers from the
// browser, so they pass ?token= instead.
func JWTFromQueryOrHeader(secret string, blacklist *auth.TokenBlacklist, db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var token string

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) == 2 && parts[0] == "Bearer" {
					token = parts[1]
				}
			}
			if token == "" {
				token = c.QueryParam("token")
			}
			if token == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "missing_token",
					Message: "Authorization header or token query parameter is required",
				})
			}

			return authenticate(c, next, token, secret, blacklist, db)
		}
	}
}

func authenticate(c echo.Context, next echo.HandlerFunc, token, secret string, blacklist *auth.TokenBlacklist, db *gorm.DB) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	claims, err := auth.ValidateJWTWithBlacklist(ctx, token, secret, blacklist)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "invalid_token",
			Message: err.Error(),
		})
	}

	role := claims.Role
	if db != nil {
		var user models.User
		if err := db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "user_not_found",
				Message: "User account not found",
			})
		}
		if !user.IsActive {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "account_disabled",
				Message: "This account has been disabled",
			})
		}
		// The row is authoritative over the claims for role changes
		// that happened after the token was issued.
		role = user.Role
		c.Set(ContextUser, &user)
	}

	c.Set(ContextToken, token)
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextUserRole, role)

	return next(c)
}
