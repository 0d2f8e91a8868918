package models

import "time"

// ExportFormat enumerates supported syllabus export formats.
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatDOCX ExportFormat = "docx"
)

// ExportStatus captures background export job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
	// ExportStatusExpired marks jobs whose result file outlived its TTL
	// and was removed by cleanup.
	ExportStatusExpired ExportStatus = "EXPIRED"
)

// ExportJob is a persisted background export request for one syllabus.
type ExportJob struct {
	ID           string       `db:"id" json:"id"`
	SyllabusID   string       `db:"syllabus_id" json:"syllabusId"`
	Format       ExportFormat `db:"format" json:"format"`
	Status       ExportStatus `db:"status" json:"status"`
	Progress     int          `db:"progress" json:"progress"`
	ResultURL    *string      `db:"result_url" json:"resultUrl,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error,omitempty"`
	CreatedBy    string       `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finishedAt,omitempty"`
}

// ValidExportFormat reports whether the format is renderable.
func ValidExportFormat(f ExportFormat) bool {
	switch f {
	case ExportFormatJSON, ExportFormatPDF, ExportFormatDOCX:
		return true
	}
	return false
}
