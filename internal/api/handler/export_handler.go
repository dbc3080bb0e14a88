package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"ntraining/backend/internal/service"
	"ntraining/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler spreadsheet downloads
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler creates an ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportUtilization license utilization workbook
// GET /api/v1/organizations/:org/licenses/export
func (h *ExportHandler) ExportUtilization(c *gin.Context) {
	orgID := c.Param("org")
	if !requireOrgScope(c, orgID) {
		return
	}

	buf, filename, err := h.exportSvc.ExportUtilization(c.Request.Context(), orgID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, 26101, "organization not found")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
