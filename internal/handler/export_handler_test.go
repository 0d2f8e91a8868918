package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/syllabus-api/internal/middleware"
	"github.com/campusworks/syllabus-api/internal/models"
	"github.com/campusworks/syllabus-api/internal/service"
	appErrors "github.com/campusworks/syllabus-api/pkg/errors"
)

type exportRenderMock struct {
	file *service.ExportFile
	err  error
}

func (m *exportRenderMock) RenderSyllabus(ctx context.Context, id string, format models.ExportFormat) (*service.ExportFile, error) {
	return m.file, m.err
}

type exportJobMock struct {
	createResp  *models.ExportJob
	createErr   error
	statusResp  *models.ExportJob
	statusErr   error
	download    *service.ExportDownload
	downloadErr error
}

func (m *exportJobMock) CreateJob(ctx context.Context, syllabusID string, format models.ExportFormat, actorID string) (*models.ExportJob, error) {
	return m.createResp, m.createErr
}

func (m *exportJobMock) GetStatus(ctx context.Context, id string, actorID string, role models.UserRole) (*models.ExportJob, error) {
	return m.statusResp, m.statusErr
}

func (m *exportJobMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func TestExportHandlerRenderPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportRenderMock{
		file: &service.ExportFile{
			Data:        []byte("%PDF-1.3"),
			Filename:    "syllabus_BCS401.pdf",
			ContentType: "application/pdf",
		},
	}
	handler := NewExportHandler(mockSvc, &exportJobMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/api/syllabus/syl-1/export/pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "syl-1"}, {Key: "format", Value: "pdf"}}

	handler.Render(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "syllabus_BCS401.pdf")
}

func TestExportHandlerRenderUnsupportedFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportRenderMock{err: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")}
	handler := NewExportHandler(mockSvc, &exportJobMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/api/syllabus/syl-1/export/xlsx", nil)
	c.Params = gin.Params{{Key: "id", Value: "syl-1"}, {Key: "format", Value: "xlsx"}}

	handler.Render(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerCreateJob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockJobs := &exportJobMock{
		createResp: &models.ExportJob{ID: "job-1", SyllabusID: "syl-1", Format: models.ExportFormatDOCX, Status: models.ExportStatusQueued},
	}
	handler := NewExportHandler(&exportRenderMock{}, mockJobs, nil)

	payload, _ := json.Marshal(map[string]string{"format": "docx"})
	c, w := newGinContext(http.MethodPost, "/api/syllabus/syl-1/exports", payload)
	c.Params = gin.Params{{Key: "id", Value: "syl-1"}}
	c.Set(middleware.ContextUserKey, teacherClaims("teacher-1"))

	handler.CreateJob(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), "job-1")
}

func TestExportHandlerCreateJobMissingFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportRenderMock{}, &exportJobMock{}, nil)

	c, w := newGinContext(http.MethodPost, "/api/syllabus/syl-1/exports", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "syl-1"}}
	c.Set(middleware.ContextUserKey, teacherClaims("teacher-1"))

	handler.CreateJob(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerJobStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockJobs := &exportJobMock{
		statusResp: &models.ExportJob{ID: "job-1", Status: models.ExportStatusFinished, Progress: 100},
	}
	handler := NewExportHandler(&exportRenderMock{}, mockJobs, nil)

	c, w := newGinContext(http.MethodGet, "/api/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, teacherClaims("teacher-1"))

	handler.JobStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "FINISHED")
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp("", "export*.pdf")
	require.NoError(t, err)
	defer os.Remove(file.Name())
	_, _ = file.WriteString("%PDF-1.3")
	_, _ = file.Seek(0, 0)

	mockJobs := &exportJobMock{
		download: &service.ExportDownload{
			File:      file,
			Filename:  "syllabus_BCS401.pdf",
			Format:    models.ExportFormatPDF,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	handler := NewExportHandler(&exportRenderMock{}, mockJobs, nil)

	c, w := newGinContext(http.MethodGet, "/api/exports/download/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "syllabus_BCS401.pdf")
}

func TestExportHandlerDownloadInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockJobs := &exportJobMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")}
	handler := NewExportHandler(&exportRenderMock{}, mockJobs, nil)

	c, w := newGinContext(http.MethodGet, "/api/exports/download/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}

	handler.Download(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
