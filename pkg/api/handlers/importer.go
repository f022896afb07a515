package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/aqarlink/crm/pkg/api/errors"
	"github.com/aqarlink/crm/pkg/audit"
	"github.com/aqarlink/crm/pkg/importer"
	"github.com/aqarlink/crm/pkg/metrics"
	"github.com/aqarlink/crm/pkg/models"
)

// maxUploadBytes caps import uploads at 10 MB.
const maxUploadBytes = 10 << 20

// ImportHandler handles bulk lead imports and the CSV template download
type ImportHandler struct {
	service     *importer.Service
	auditLogger *audit.Service
	metrics     *metrics.Metrics
}

// NewImportHandler creates a new import handler
func NewImportHandler(service *importer.Service, auditLogger *audit.Service, m *metrics.Metrics) *ImportHandler {
	return &ImportHandler{
		service:     service,
		auditLogger: auditLogger,
		metrics:     m,
	}
}

// Upload godoc
// @Summary Import leads from a CSV or Excel file
// @Description Bilingual (Arabic/English) headers are matched fuzzily; invalid rows are skipped and reported, never aborting the batch
// @Tags Import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX file (max 10 MB, 10000 rows)"
// @Param skip_duplicates formData bool false "Skip rows whose phone/email already exists (default true)"
// @Success 200 {object} importer.Result
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/import [post]
func (h *ImportHandler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apierrors.BadRequest(c, "A file upload named 'file' is required")
	}
	if fileHeader.Size > maxUploadBytes {
		return apierrors.BadRequest(c, "File exceeds the 10 MB upload limit")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	defer src.Close()

	opts := importer.DefaultOptions()
	if c.FormValue("skip_duplicates") == "false" {
		opts.SkipDuplicates = false
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	result, err := h.service.ImportFile(ctx, fileHeader.Filename, src, opts, currentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrUnsupportedFormat):
			return apierrors.BadRequest(c, "Only .csv and .xlsx files are supported")
		case errors.Is(err, importer.ErrNoHeaderRow):
			return apierrors.BadRequest(c, "The file has no header row")
		case errors.Is(err, importer.ErrNoPhoneColumn):
			return apierrors.BadRequest(c, "No phone column found; add a 'Phone' or 'الهاتف' header")
		}
		return apierrors.InternalError(c, err)
	}

	h.metrics.LeadsImported.Add(float64(result.ImportedCount))
	_ = h.auditLogger.Log(ctx, audit.Entry{
		UserID:       userIDPtr(c),
		Action:       models.AuditLeadImport,
		ResourceType: "import",
		Description:  fileHeader.Filename,
		Metadata: models.JSONMap{
			"total_rows": result.TotalRows,
			"imported":   result.ImportedCount,
			"skipped":    result.SkippedCount,
			"duplicates": result.DuplicateCount,
		},
	})

	return c.JSON(http.StatusOK, models.OK(result))
}

// Template godoc
// @Summary Download the bilingual CSV import template
// @Description UTF-8 BOM prefixed so Arabic headers open correctly in Excel
// @Tags Import
// @Produce text/csv
// @Success 200 {file} file
// @Security BearerAuth
// @Router /api/v1/leads/import/template [get]
func (h *ImportHandler) Template(c echo.Context) error {
	var buf bytes.Buffer
	if err := importer.WriteTemplate(&buf); err != nil {
		return apierrors.InternalError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="leads-import-template.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
