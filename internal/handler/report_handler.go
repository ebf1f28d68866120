package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/service"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type classReportService interface {
	ClassReport(ctx context.Context) (*dto.ClassReport, bool, error)
	Render(ctx context.Context, format models.ExportFormat) (*service.RenderedReport, error)
}

type exportJobService interface {
	CreateJob(ctx context.Context, format models.ExportFormat) (*dto.ExportJobResponse, error)
	Status(ctx context.Context, id string) (*dto.ExportJobResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	reports classReportService
	exports exportJobService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports classReportService, exports exportJobService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// ClassReport godoc
// @Summary Class performance report
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/class [get]
func (h *ReportHandler) ClassReport(c *gin.Context) {
	start := time.Now()
	report, cacheHit, err := h.reports.ClassReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, report, cacheHit, start)
}

// Download godoc
// @Summary Download the class report
// @Tags Reports
// @Produce plain
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "text, csv or pdf" default(text)
// @Success 200 {file} file
// @Router /reports/class/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	format := models.ExportFormat(c.DefaultQuery("format", string(models.ExportFormatText)))
	rendered, err := h.reports.Render(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", attachment(rendered.Filename))
	c.Data(http.StatusOK, rendered.ContentType, rendered.Data)
}

// CreateExport godoc
// @Summary Queue an asynchronous class report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ExportJobRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Router /reports/exports [post]
func (h *ReportHandler) CreateExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled"))
		return
	}
	var req dto.ExportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	job, err := h.exports.CreateJob(c.Request.Context(), req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Export ID"
// @Success 200 {object} response.Envelope
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled"))
		return
	}
	job, err := h.exports.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// DownloadExport godoc
// @Summary Download a finished export through its signed token
// @Tags Reports
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/exports/download/{token} [get]
func (h *ReportHandler) DownloadExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled"))
		return
	}
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read export"))
		return
	}
	headers := map[string]string{"Content-Disposition": attachment(download.Filename)}
	if !download.ExpiresAt.IsZero() {
		headers["Expires"] = download.ExpiresAt.UTC().Format(http.TimeFormat)
	}
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, headers)
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
