package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/syllabus-api/internal/middleware"
	"github.com/campusworks/syllabus-api/internal/models"
	"github.com/campusworks/syllabus-api/internal/service"
	appErrors "github.com/campusworks/syllabus-api/pkg/errors"
)

type syllabusServiceMock struct {
	createResp *models.Syllabus
	createErr  error
	getResp    *models.Syllabus
	getErr     error
	listResp   []models.Syllabus
	listErr    error
	listFilter models.SyllabusFilter
	updateResp *models.Syllabus
	updateErr  error
	deleteErr  error
}

func (m *syllabusServiceMock) Create(ctx context.Context, ownerID string, req service.SyllabusPayload) (*models.Syllabus, error) {
	return m.createResp, m.createErr
}

func (m *syllabusServiceMock) Get(ctx context.Context, id string) (*models.Syllabus, error) {
	return m.getResp, m.getErr
}

func (m *syllabusServiceMock) List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, *models.Pagination, error) {
	m.listFilter = filter
	if m.listErr != nil {
		return nil, nil, m.listErr
	}
	return m.listResp, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.listResp)}, nil
}

func (m *syllabusServiceMock) Update(ctx context.Context, id string, actorID string, role models.UserRole, req service.SyllabusPayload) (*models.Syllabus, error) {
	return m.updateResp, m.updateErr
}

func (m *syllabusServiceMock) Delete(ctx context.Context, id string, actorID string, role models.UserRole) error {
	return m.deleteErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func teacherClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func sampleRecord() *models.Syllabus {
	return &models.Syllabus{
		ID:          "syl-1",
		OwnerID:     "teacher-1",
		Semester:    4,
		CourseTitle: "Operating Systems",
		CourseCode:  "BCS401",
	}
}

func TestSyllabusHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &syllabusServiceMock{createResp: sampleRecord()}
	handler := NewSyllabusHandler(mockSvc)

	payload, _ := json.Marshal(map[string]interface{}{"courseTitle": "Operating Systems", "courseCode": "BCS401"})
	c, w := newGinContext(http.MethodPost, "/api/syllabus", payload)
	c.Set(middleware.ContextUserKey, teacherClaims("teacher-1"))

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "BCS401")
}

func TestSyllabusHandlerCreateUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSyllabusHandler(&syllabusServiceMock{})

	c, w := newGinContext(http.MethodPost, "/api/syllabus", []byte(`{}`))

	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSyllabusHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &syllabusServiceMock{listResp: []models.Syllabus{*sampleRecord()}}
	handler := NewSyllabusHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/api/syllabus?search=bcs&page=2&limit=5", nil)
	c.Set(middleware.ContextUserKey, teacherClaims("teacher-1"))

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "bcs", mockSvc.listFilter.Search)
	require.Equal(t, 2, mockSvc.listFilter.Page)
	require.Equal(t, 5, mockSvc.listFilter.PageSize)
}

func TestSyllabusHandlerListForeignOwnerFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSyllabusHandler(&syllabusServiceMock{})

	c, w := newGinContext(http.MethodGet, "/api/syllabus?userId=teacher-2", nil)
	c.Set(middleware.ContextUserKey, teacherClaims("teacher-1"))

	handler.List(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSyllabusHandlerListAdminOwnerFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &syllabusServiceMock{}
	handler := NewSyllabusHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/api/syllabus?userId=teacher-2", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "teacher-2", mockSvc.listFilter.OwnerID)
}

func TestSyllabusHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &syllabusServiceMock{getErr: appErrors.ErrNotFound}
	handler := NewSyllabusHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/api/syllabus/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyllabusHandlerUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &syllabusServiceMock{updateResp: sampleRecord()}
	handler := NewSyllabusHandler(mockSvc)

	payload, _ := json.Marshal(map[string]interface{}{"courseTitle": "Operating Systems"})
	c, w := newGinContext(http.MethodPut, "/api/syllabus/syl-1", payload)
	c.Params = gin.Params{{Key: "id", Value: "syl-1"}}
	c.Set(middleware.ContextUserKey, teacherClaims("teacher-1"))

	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSyllabusHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSyllabusHandler(&syllabusServiceMock{})

	c, w := newGinContext(http.MethodDelete, "/api/syllabus/syl-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "syl-1"}}
	c.Set(middleware.ContextUserKey, teacherClaims("teacher-1"))

	handler.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "deleted")
}

func TestSyllabusHandlerDeleteForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSyllabusHandler(&syllabusServiceMock{deleteErr: appErrors.ErrForbidden})

	c, w := newGinContext(http.MethodDelete, "/api/syllabus/syl-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "syl-1"}}
	c.Set(middleware.ContextUserKey, teacherClaims("teacher-2"))

	handler.Delete(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
