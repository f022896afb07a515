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
	"github.com/aqarlink/crm/pkg/export"
	"github.com/aqarlink/crm/pkg/metrics"
	"github.com/aqarlink/crm/pkg/models"
)

// ExportHandler handles lead/client exports
type ExportHandler struct {
	service     *export.Service
	auditLogger *audit.Service
	metrics     *metrics.Metrics
	validator   *validator.Validate
}

// NewExportHandler creates a new export handler
func NewExportHandler(service *export.Service, auditLogger *audit.Service, m *metrics.Metrics) *ExportHandler {
	return &ExportHandler{
		service:     service,
		auditLogger: auditLogger,
		metrics:     m,
		validator:   validator.New(),
	}
}

// Create godoc
// @Summary Export leads or clients to CSV or Excel
// @Description CSV output carries a UTF-8 BOM so Arabic text opens correctly in Excel; the file streams back as a download
// @Tags Export
// @Accept json
// @Produce json
// @Param request body models.ExportRequest true "Entity, format and optional status filter"
// @Success 200 {file} file
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/export [post]
func (h *ExportHandler) Create(c echo.Context) error {
	var req models.ExportRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Minute)
	defer cancel()

	info, err := h.service.Export(ctx, req)
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "nothing_to_export",
				Message: "No rows matched the export filter",
			})
		}
		return apierrors.InternalError(c, err)
	}

	h.metrics.ExportsCreated.Inc()
	_ = h.auditLogger.Log(ctx, audit.Entry{
		UserID:       userIDPtr(c),
		Action:       models.AuditExportCreate,
		ResourceType: "export",
		Description:  info.Filename,
		Metadata: models.JSONMap{
			"entity":    req.Entity,
			"format":    req.Format,
			"row_count": info.RowCount,
		},
	})

	return c.Attachment(info.Path, info.Filename)
}
