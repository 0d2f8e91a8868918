package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/syllabus-api/internal/models"
	appErrors "github.com/campusworks/syllabus-api/pkg/errors"
	"github.com/campusworks/syllabus-api/pkg/export"
	"github.com/campusworks/syllabus-api/pkg/storage"
)

type syllabusFinder interface {
	FindByID(ctx context.Context, id string) (*models.Syllabus, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour and letterhead content.
type ExportConfig struct {
	APIPrefix  string
	ResultTTL  time.Duration
	Institute  string
	Department string
	LogoPath   string
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportFile is a rendered document ready to be written to a response.
type ExportFile struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportService renders syllabus documents and persists generated files.
type ExportService struct {
	syllabi syllabusFinder
	storage fileStorage
	pdf     documentRenderer
	docx    documentRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	logo    []byte
}

// NewExportService constructs an ExportService. A missing or unreadable
// logo file is logged and exports proceed without artwork.
func NewExportService(syllabi syllabusFinder, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, pdf documentRenderer, docx documentRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if pdf == nil {
		pdf = export.NewPDFRenderer()
	}
	if docx == nil {
		docx = export.NewDocxRenderer()
	}
	svc := &ExportService{
		syllabi: syllabi,
		storage: store,
		pdf:     pdf,
		docx:    docx,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
	if cfg.LogoPath != "" {
		logo, err := os.ReadFile(cfg.LogoPath)
		if err != nil {
			logger.Warn("failed to load export logo, continuing without it",
				zap.String("path", cfg.LogoPath), zap.Error(err))
		} else {
			svc.logo = logo
		}
	}
	return svc
}

// RenderSyllabus produces a complete export document for synchronous
// download.
func (s *ExportService) RenderSyllabus(ctx context.Context, id string, format models.ExportFormat) (*ExportFile, error) {
	if !models.ValidExportFormat(format) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	record, err := s.syllabi.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus")
	}

	payload, err := s.render(record, format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Data:        payload,
		Filename:    buildFilename(record.CourseCode, format),
		ContentType: contentTypeFor(format),
	}, nil
}

// Generate renders the job's syllabus and stores the result, returning
// the signed download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	record, err := s.syllabi.FindByID(ctx, job.SyllabusID)
	if err != nil {
		return nil, fmt.Errorf("load syllabus %s: %w", job.SyllabusID, err)
	}

	payload, err := s.render(record, job.Format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(buildFilename(record.CourseCode, job.Format), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL
// when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) render(record *models.Syllabus, format models.ExportFormat) ([]byte, error) {
	switch format {
	case models.ExportFormatJSON:
		return json.MarshalIndent(record, "", "  ")
	case models.ExportFormatPDF:
		return s.pdf.Render(s.BuildDocument(record))
	case models.ExportFormatDOCX:
		return s.docx.Render(s.BuildDocument(record))
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
}

// BuildDocument assembles the shared export layout for one syllabus.
// Every renderer consumes this description, so the printed structure
// stays identical across formats.
func (s *ExportService) BuildDocument(record *models.Syllabus) export.Document {
	doc := export.Document{
		Title:    s.cfg.Institute,
		Subtitle: s.cfg.Department,
		Logo:     s.logo,
	}

	doc.Sections = append(doc.Sections, export.Section{
		Heading: fmt.Sprintf("%s (%s)", record.CourseTitle, record.CourseCode),
		Blocks: []export.Block{
			export.Table{
				Headers: []string{"Semester", "Credits", "Total Hours", "L:T:P:S"},
				Rows: [][]string{{
					strconv.Itoa(record.Semester),
					strconv.Itoa(record.Credits),
					record.TotalHours,
					record.LTPS,
				}},
				WideCol: -1,
			},
			export.Table{
				Headers: []string{"CIE Marks", "SEE Marks", "Total Marks", "Exam Type", "Exam Hours"},
				Rows: [][]string{{
					strconv.Itoa(record.CIE),
					strconv.Itoa(record.SEE),
					strconv.Itoa(record.TotalMarks),
					record.ExamType,
					strconv.Itoa(record.ExamHours),
				}},
				WideCol: -1,
			},
		},
	})

	doc.Sections = append(doc.Sections, export.Section{
		Heading: "Course Objectives",
		Blocks:  []export.Block{export.Paragraph{Text: record.CourseObjectives}},
	})

	if len(record.Modules) > 0 {
		rows := make([][]string, 0, len(record.Modules))
		for _, m := range record.Modules {
			rows = append(rows, []string{
				strconv.Itoa(m.ModuleNo),
				m.Description,
				m.TextBookRef,
				m.Chapter,
				m.RBT,
			})
		}
		doc.Sections = append(doc.Sections, export.Section{
			Heading: "Modules",
			Blocks: []export.Block{export.Table{
				Headers: []string{"Module No", "Description", "Text Book", "Chapter", "RBT Level"},
				Rows:    rows,
				WideCol: 1,
			}},
		})
	}

	doc.Sections = append(doc.Sections, export.Section{
		Heading: "Teaching-Learning Process",
		Blocks:  []export.Block{export.Paragraph{Text: record.TeachingLearningProcess}},
	})

	if len(record.CourseOutcomes) > 0 {
		doc.Sections = append(doc.Sections, export.Section{
			Heading: "Course Outcomes",
			Blocks:  []export.Block{export.NumberedList{Prefix: "CO", Items: record.CourseOutcomes}},
		})
	}

	if len(record.TextBooks) > 0 {
		rows := make([][]string, 0, len(record.TextBooks))
		for _, t := range record.TextBooks {
			rows = append(rows, []string{
				strconv.Itoa(t.SlNo),
				t.Author,
				t.Title,
				t.Publisher,
				t.EditionYear,
			})
		}
		doc.Sections = append(doc.Sections, export.Section{
			Heading: "Text Books",
			Blocks: []export.Block{export.Table{
				Headers: []string{"Sl No", "Author", "Title", "Publisher", "Edition / Year"},
				Rows:    rows,
				WideCol: 2,
			}},
		})
	}

	return doc
}

func buildFilename(courseCode string, format models.ExportFormat) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("syllabus_%s_%s.%s", sanitizeFilename(courseCode), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func contentTypeFor(format models.ExportFormat) string {
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
