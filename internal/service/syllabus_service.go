package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/syllabus-api/internal/models"
	appErrors "github.com/campusworks/syllabus-api/pkg/errors"
)

type syllabusRepository interface {
	List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, int, error)
	FindByID(ctx context.Context, id string) (*models.Syllabus, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, record *models.Syllabus) error
	Update(ctx context.Context, record *models.Syllabus) error
	Delete(ctx context.Context, id string) (bool, error)
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SyllabusPayload is the full record body supplied on create and update.
// The owner is never read from the payload; it comes from the verified
// caller identity. Numeric marks fields accept zero, a course can carry
// its full weight in either CIE or SEE.
type SyllabusPayload struct {
	Semester                int               `json:"semester" validate:"gte=0"`
	CourseTitle             string            `json:"courseTitle" validate:"required"`
	CourseCode              string            `json:"courseCode" validate:"required"`
	Credits                 int               `json:"credits" validate:"gte=0"`
	TotalHours              string            `json:"totalHours" validate:"required"`
	LTPS                    string            `json:"ltps" validate:"required"`
	CIE                     int               `json:"cie" validate:"gte=0"`
	SEE                     int               `json:"see" validate:"gte=0"`
	TotalMarks              int               `json:"totalMarks" validate:"gte=0"`
	ExamType                string            `json:"examType" validate:"required"`
	ExamHours               int               `json:"examHours" validate:"gte=0"`
	CourseObjectives        string            `json:"courseObjectives" validate:"required"`
	TeachingLearningProcess string            `json:"teachingLearningProcess" validate:"required"`
	Modules                 []models.Module   `json:"modules" validate:"omitempty,dive"`
	CourseOutcomes          []string          `json:"courseOutcomes" validate:"omitempty,dive,required"`
	TextBooks               []models.Textbook `json:"textBooks" validate:"omitempty,dive"`
}

// SyllabusServiceConfig carries record policy knobs.
type SyllabusServiceConfig struct {
	UniqueCourseCodes bool
	ListCacheTTL      time.Duration
}

// SyllabusService orchestrates syllabus record operations.
type SyllabusService struct {
	repo      syllabusRepository
	cache     listCache
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       SyllabusServiceConfig
}

// NewSyllabusService constructs a SyllabusService. metrics may be nil.
func NewSyllabusService(repo syllabusRepository, cache listCache, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg SyllabusServiceConfig) *SyllabusService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ListCacheTTL <= 0 {
		cfg.ListCacheTTL = 5 * time.Minute
	}
	return &SyllabusService{repo: repo, cache: cache, validator: validate, logger: logger, metrics: metrics, cfg: cfg}
}

type cachedList struct {
	Records []models.Syllabus `json:"records"`
	Total   int               `json:"total"`
}

// List returns records matching the filter plus pagination data, newest
// first. An empty search matches everything.
func (s *SyllabusService) List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	key := listCacheKey(filter)
	if s.cache != nil {
		var cached cachedList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: cached.Total}
			return cached.Records, pagination, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list syllabi")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedList{Records: records, Total: total}, s.cfg.ListCacheTTL); err != nil {
			s.logger.Warn("failed to cache syllabus list", zap.Error(err))
		}
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return records, pagination, nil
}

// Get returns a record by id.
func (s *SyllabusService) Get(ctx context.Context, id string) (*models.Syllabus, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}
	return record, nil
}

// Create persists a new record owned by the verified caller.
func (s *SyllabusService) Create(ctx context.Context, ownerID string, req SyllabusPayload) (*models.Syllabus, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "caller identity required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid syllabus payload")
	}
	if err := s.ensureUniqueCode(ctx, req.CourseCode, ""); err != nil {
		return nil, err
	}

	record := &models.Syllabus{OwnerID: ownerID}
	applyPayload(record, req)

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create syllabus")
	}
	s.invalidateLists(ctx)
	return record, nil
}

// Update replaces an existing record, last write wins. Only the owner or
// an admin may update.
func (s *SyllabusService) Update(ctx context.Context, id string, actorID string, role models.UserRole, req SyllabusPayload) (*models.Syllabus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid syllabus payload")
	}

	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.OwnerID != actorID && role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "syllabus belongs to another teacher")
	}
	if err := s.ensureUniqueCode(ctx, req.CourseCode, id); err != nil {
		return nil, err
	}

	applyPayload(record, req)
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update syllabus")
	}
	s.invalidateLists(ctx)
	return record, nil
}

// Delete removes a record after verifying the caller owns it. Deletion is
// immediate and irreversible.
func (s *SyllabusService) Delete(ctx context.Context, id string, actorID string, role models.UserRole) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.OwnerID != actorID && role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "syllabus belongs to another teacher")
	}

	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete syllabus")
	}
	if !existed {
		return appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
	}
	s.invalidateLists(ctx)
	return nil
}

func (s *SyllabusService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	if !s.cfg.UniqueCourseCodes {
		return nil
	}
	exists, err := s.repo.ExistsByCode(ctx, strings.TrimSpace(code), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	return nil
}

func (s *SyllabusService) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "syllabus:list:*"); err != nil {
		s.logger.Warn("failed to invalidate syllabus list cache", zap.Error(err))
	}
}

func applyPayload(record *models.Syllabus, req SyllabusPayload) {
	record.Semester = req.Semester
	record.CourseTitle = strings.TrimSpace(req.CourseTitle)
	record.CourseCode = strings.TrimSpace(req.CourseCode)
	record.Credits = req.Credits
	record.TotalHours = req.TotalHours
	record.LTPS = req.LTPS
	record.CIE = req.CIE
	record.SEE = req.SEE
	record.TotalMarks = req.TotalMarks
	record.ExamType = req.ExamType
	record.ExamHours = req.ExamHours
	record.CourseObjectives = req.CourseObjectives
	record.TeachingLearningProcess = req.TeachingLearningProcess
	record.Modules = models.ModuleList(req.Modules)
	record.CourseOutcomes = models.OutcomeList(req.CourseOutcomes)
	record.TextBooks = models.TextbookList(req.TextBooks)
}

func listCacheKey(filter models.SyllabusFilter) string {
	return fmt.Sprintf("syllabus:list:%s:%s:%d:%d", filter.OwnerID, strings.ToLower(filter.Search), filter.Page, filter.PageSize)
}
