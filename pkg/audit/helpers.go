package audit

import (
	"github.com/labstack/echo/v4"
)

// RequestContext extracts the client IP and user agent for audit rows.
func RequestContext(c echo.Context) (ipAddress, userAgent string) {
	ip := c.Request().Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = c.Request().Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = c.RealIP()
	}
	return ip, c.Request().UserAgent()
}
