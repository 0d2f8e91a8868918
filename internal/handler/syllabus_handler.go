package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/syllabus-api/internal/models"
	"github.com/campusworks/syllabus-api/internal/service"
	appErrors "github.com/campusworks/syllabus-api/pkg/errors"
	"github.com/campusworks/syllabus-api/pkg/response"
)

type syllabusService interface {
	Create(ctx context.Context, ownerID string, req service.SyllabusPayload) (*models.Syllabus, error)
	Get(ctx context.Context, id string) (*models.Syllabus, error)
	List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, *models.Pagination, error)
	Update(ctx context.Context, id string, actorID string, role models.UserRole, req service.SyllabusPayload) (*models.Syllabus, error)
	Delete(ctx context.Context, id string, actorID string, role models.UserRole) error
}

// SyllabusHandler exposes syllabus CRUD endpoints.
type SyllabusHandler struct {
	service syllabusService
}

// NewSyllabusHandler constructs handler.
func NewSyllabusHandler(svc syllabusService) *SyllabusHandler {
	return &SyllabusHandler{service: svc}
}

// Create godoc
// @Summary Create syllabus
// @Description Persist a new syllabus record owned by the caller
// @Tags Syllabus
// @Accept json
// @Produce json
// @Param payload body service.SyllabusPayload true "Syllabus payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /syllabus [post]
func (h *SyllabusHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SyllabusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid syllabus payload"))
		return
	}

	record, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// List godoc
// @Summary List syllabi
// @Description List syllabus records newest first, with optional search and owner filter
// @Tags Syllabus
// @Produce json
// @Param search query string false "Case-insensitive substring over course title or code"
// @Param userId query string false "Owner filter, self or admin only"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /syllabus [get]
func (h *SyllabusHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	ownerID := c.Query("userId")
	if ownerID != "" && claims.Role != models.RoleAdmin && ownerID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "userId filter limited to your own records"))
		return
	}

	filter := models.SyllabusFilter{
		OwnerID:  ownerID,
		Search:   c.Query("search"),
		Page:     parsePositiveInt(c.Query("page"), 1),
		PageSize: parsePositiveInt(c.Query("limit"), 20),
	}

	records, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get syllabus
// @Tags Syllabus
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabus/{id} [get]
func (h *SyllabusHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Update godoc
// @Summary Update syllabus
// @Description Full replace of a syllabus record, owner or admin only
// @Tags Syllabus
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body service.SyllabusPayload true "Syllabus payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabus/{id} [put]
func (h *SyllabusHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SyllabusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid syllabus payload"))
		return
	}

	record, err := h.service.Update(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete syllabus
// @Description Remove a syllabus record, owner or admin only
// @Tags Syllabus
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabus/{id} [delete]
func (h *SyllabusHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "syllabus deleted successfully")
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
