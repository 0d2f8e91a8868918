package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/syllabus-api/internal/models"
	"github.com/campusworks/syllabus-api/internal/service"
	appErrors "github.com/campusworks/syllabus-api/pkg/errors"
	"github.com/campusworks/syllabus-api/pkg/response"
)

type exportRenderService interface {
	RenderSyllabus(ctx context.Context, id string, format models.ExportFormat) (*service.ExportFile, error)
}

type exportJobService interface {
	CreateJob(ctx context.Context, syllabusID string, format models.ExportFormat, actorID string) (*models.ExportJob, error)
	GetStatus(ctx context.Context, id string, actorID string, role models.UserRole) (*models.ExportJob, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler exposes synchronous export and export job endpoints.
type ExportHandler struct {
	exports exportRenderService
	jobs    exportJobService
	metrics *service.MetricsService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports exportRenderService, jobs exportJobService, metrics *service.MetricsService) *ExportHandler {
	return &ExportHandler{exports: exports, jobs: jobs, metrics: metrics}
}

// Render godoc
// @Summary Export syllabus
// @Description Render one syllabus as json, pdf, or docx and stream it back
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Syllabus ID"
// @Param format path string true "Export format" Enums(json, pdf, docx)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabus/{id}/export/{format} [get]
func (h *ExportHandler) Render(c *gin.Context) {
	format := models.ExportFormat(c.Param("format"))
	file, err := h.exports.RenderSyllabus(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		h.metrics.RecordExport(string(format), false)
		response.Error(c, err)
		return
	}
	h.metrics.RecordExport(string(format), true)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// CreateJob godoc
// @Summary Queue export job
// @Description Queue asynchronous export rendering for one syllabus
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body object true "Format payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /syllabus/{id}/exports [post]
func (h *ExportHandler) CreateJob(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Format models.ExportFormat `json:"format" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format required"))
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), c.Param("id"), payload.Format, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) JobStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download rendered export
// @Description Stream a finished export through its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Cache-Control", "no-store")

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), contentTypeForFormat(download.Format), download.File, nil)
}

func contentTypeForFormat(format models.ExportFormat) string {
	switch format {
	case models.ExportFormatJSON:
		return "application/json"
	case models.ExportFormatPDF:
		return "application/pdf"
	case models.ExportFormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
