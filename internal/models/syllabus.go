package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Module is one teaching unit embedded in a syllabus. Entries live and die
// with their parent record and carry no identity beyond their position.
type Module struct {
	ModuleNo    int    `json:"moduleNo" validate:"gte=0"`
	Description string `json:"description" validate:"required"`
	TextBookRef string `json:"textBookRef" validate:"required"`
	Chapter     string `json:"chapter" validate:"required"`
	RBT         string `json:"rbt" validate:"required"`
}

// Textbook is a reference book entry embedded in a syllabus.
type Textbook struct {
	SlNo        int    `json:"slNo" validate:"gte=0"`
	Author      string `json:"author" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Publisher   string `json:"publisher" validate:"required"`
	EditionYear string `json:"editionYear" validate:"required"`
}

// ModuleList stores the ordered module sequence as a JSONB column.
type ModuleList []Module

// OutcomeList stores course outcomes (one free-text statement each) as JSONB.
type OutcomeList []string

// TextbookList stores the ordered textbook sequence as JSONB.
type TextbookList []Textbook

// Syllabus is the persisted course syllabus record. JSON field names match
// the wire contract the web client already speaks (camelCase).
type Syllabus struct {
	ID                      string       `db:"id" json:"id"`
	OwnerID                 string       `db:"owner_id" json:"userId"`
	Semester                int          `db:"semester" json:"semester"`
	CourseTitle             string       `db:"course_title" json:"courseTitle"`
	CourseCode              string       `db:"course_code" json:"courseCode"`
	Credits                 int          `db:"credits" json:"credits"`
	TotalHours              string       `db:"total_hours" json:"totalHours"`
	LTPS                    string       `db:"ltps" json:"ltps"`
	CIE                     int          `db:"cie" json:"cie"`
	SEE                     int          `db:"see" json:"see"`
	TotalMarks              int          `db:"total_marks" json:"totalMarks"`
	ExamType                string       `db:"exam_type" json:"examType"`
	ExamHours               int          `db:"exam_hours" json:"examHours"`
	CourseObjectives        string       `db:"course_objectives" json:"courseObjectives"`
	TeachingLearningProcess string       `db:"teaching_learning_process" json:"teachingLearningProcess"`
	Modules                 ModuleList   `db:"modules" json:"modules"`
	CourseOutcomes          OutcomeList  `db:"course_outcomes" json:"courseOutcomes"`
	TextBooks               TextbookList `db:"text_books" json:"textBooks"`
	CreatedAt               time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt               time.Time    `db:"updated_at" json:"updatedAt"`
}

// SyllabusFilter captures supported filters for listing syllabi.
type SyllabusFilter struct {
	OwnerID  string
	Search   string
	Page     int
	PageSize int
}

// Value marshals the module list for persistence.
func (m ModuleList) Value() (driver.Value, error) {
	return marshalEmbedded(m, "modules")
}

// Scan unmarshals a JSONB payload into the module list.
func (m *ModuleList) Scan(value interface{}) error {
	return scanEmbedded(value, m, "modules")
}

// Value marshals the outcome list for persistence.
func (o OutcomeList) Value() (driver.Value, error) {
	return marshalEmbedded(o, "course outcomes")
}

// Scan unmarshals a JSONB payload into the outcome list.
func (o *OutcomeList) Scan(value interface{}) error {
	return scanEmbedded(value, o, "course outcomes")
}

// Value marshals the textbook list for persistence.
func (t TextbookList) Value() (driver.Value, error) {
	return marshalEmbedded(t, "textbooks")
}

// Scan unmarshals a JSONB payload into the textbook list.
func (t *TextbookList) Scan(value interface{}) error {
	return scanEmbedded(value, t, "textbooks")
}

func marshalEmbedded(v interface{}, label string) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", label, err)
	}
	return data, nil
}

func scanEmbedded(value interface{}, dest interface{}, label string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, label)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", label, err)
	}
	return nil
}
