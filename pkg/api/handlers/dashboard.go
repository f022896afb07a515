package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/aqarlink/crm/pkg/api/errors"
	"github.com/aqarlink/crm/pkg/dashboard"
	"github.com/aqarlink/crm/pkg/models"
)

// DashboardHandler serves the aggregated dashboard summary
type DashboardHandler struct {
	service *dashboard.Service
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Get dashboard statistics
// @Description Status counts, score distribution, per-user load and monthly conversions; cached for 60 seconds
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dashboard.Summary
// @Security BearerAuth
// @Router /api/v1/dashboard [get]
func (h *DashboardHandler) Summary(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	summary, err := h.service.GetSummary(ctx)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(summary))
}
