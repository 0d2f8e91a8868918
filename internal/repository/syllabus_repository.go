package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/syllabus-api/internal/models"
)

const syllabusColumns = `id, owner_id, semester, course_title, course_code, credits, total_hours, ltps, cie, see, total_marks, exam_type, exam_hours, course_objectives, teaching_learning_process, modules, course_outcomes, text_books, created_at, updated_at`

// SyllabusRepository manages persistence for syllabus records. Embedded
// modules, outcomes and textbooks travel inside the row as JSONB, so every
// write touches exactly one row and is atomic per record.
type SyllabusRepository struct {
	db *sqlx.DB
}

// NewSyllabusRepository constructs a SyllabusRepository.
func NewSyllabusRepository(db *sqlx.DB) *SyllabusRepository {
	return &SyllabusRepository{db: db}
}

// List returns records matching the filter, newest first, with total count.
func (r *SyllabusRepository) List(ctx context.Context, filter models.SyllabusFilter) ([]models.Syllabus, int, error) {
	base := "FROM syllabi WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(course_title) LIKE $%d OR LOWER(course_code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", syllabusColumns, base, size, offset)
	var records []models.Syllabus
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list syllabi: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count syllabi: %w", err)
	}

	return records, total, nil
}

// FindByID fetches a syllabus record by ID.
func (r *SyllabusRepository) FindByID(ctx context.Context, id string) (*models.Syllabus, error) {
	query := fmt.Sprintf("SELECT %s FROM syllabi WHERE id = $1", syllabusColumns)
	var record models.Syllabus
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ExistsByCode checks whether another record already uses the course code.
func (r *SyllabusRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM syllabi WHERE LOWER(course_code) = LOWER($1)"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create inserts a new syllabus record with generated id and timestamps.
func (r *SyllabusRepository) Create(ctx context.Context, record *models.Syllabus) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO syllabi (id, owner_id, semester, course_title, course_code, credits, total_hours, ltps, cie, see, total_marks, exam_type, exam_hours, course_objectives, teaching_learning_process, modules, course_outcomes, text_books, created_at, updated_at)
		VALUES (:id, :owner_id, :semester, :course_title, :course_code, :credits, :total_hours, :ltps, :cie, :see, :total_marks, :exam_type, :exam_hours, :course_objectives, :teaching_learning_process, :modules, :course_outcomes, :text_books, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create syllabus: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of an existing record.
func (r *SyllabusRepository) Update(ctx context.Context, record *models.Syllabus) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE syllabi SET semester = :semester, course_title = :course_title, course_code = :course_code, credits = :credits, total_hours = :total_hours, ltps = :ltps, cie = :cie, see = :see, total_marks = :total_marks, exam_type = :exam_type, exam_hours = :exam_hours, course_objectives = :course_objectives, teaching_learning_process = :teaching_learning_process, modules = :modules, course_outcomes = :course_outcomes, text_books = :text_books, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update syllabus: %w", err)
	}
	return nil
}

// Delete removes a record and reports whether it existed.
func (r *SyllabusRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM syllabi WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete syllabus: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete syllabus rows affected: %w", err)
	}
	return affected > 0, nil
}
