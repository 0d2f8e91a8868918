package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusworks/syllabus-api/internal/models"
	"github.com/campusworks/syllabus-api/internal/repository"
	appErrors "github.com/campusworks/syllabus-api/pkg/errors"
	"github.com/campusworks/syllabus-api/pkg/jobs"
)

type exportJobRepoStub struct {
	jobs map[string]*models.ExportJob
}

func newExportJobRepoStub() *exportJobRepoStub {
	return &exportJobRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportJobRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportJobRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *exportJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportJobRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportJobRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var finished []models.ExportJob
	for _, job := range r.jobs {
		if job.Status != models.ExportStatusFinished || job.FinishedAt == nil || !job.FinishedAt.Before(cutoff) {
			continue
		}
		finished = append(finished, *job)
		if limit > 0 && len(finished) == limit {
			break
		}
	}
	return finished, nil
}

// stuckExportJobRepoStub refuses every update, so rows can never leave
// the FINISHED state.
type stuckExportJobRepoStub struct {
	*exportJobRepoStub
}

func (r stuckExportJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	return errors.New("update failed")
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newExportJobServiceForTest(t *testing.T) (*ExportJobService, *exportJobRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newExportJobRepoStub()
	queue := &queueStub{}
	exportSvc, _ := newExportServiceForTest(t)
	finder := syllabusFinderStub{records: map[string]*models.Syllabus{"syl-1": sampleSyllabus()}}
	svc := NewExportJobService(repo, finder, queue, exportSvc, zap.NewNop(), ExportJobServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})
	return svc, repo, queue, exportSvc
}

func TestExportJobServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)

	job, err := svc.CreateJob(context.Background(), "syl-1", models.ExportFormatPDF, "teacher-1")
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Contains(t, repo.jobs, job.ID)
}

func TestExportJobServiceCreateJobUnknownSyllabus(t *testing.T) {
	svc, _, _, _ := newExportJobServiceForTest(t)

	_, err := svc.CreateJob(context.Background(), "missing", models.ExportFormatPDF, "teacher-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportJobServiceCreateJobInvalidFormat(t *testing.T) {
	svc, _, _, _ := newExportJobServiceForTest(t)

	_, err := svc.CreateJob(context.Background(), "syl-1", models.ExportFormat("xlsx"), "teacher-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportJobServiceGetStatusOwnership(t *testing.T) {
	svc, repo, _, _ := newExportJobServiceForTest(t)
	job := &models.ExportJob{
		ID:         "job-1",
		SyllabusID: "syl-1",
		Format:     models.ExportFormatPDF,
		Status:     models.ExportStatusFinished,
		Progress:   100,
		CreatedBy:  "teacher-1",
	}
	repo.jobs[job.ID] = job

	_, err := svc.GetStatus(context.Background(), job.ID, "teacher-2", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	got, err := svc.GetStatus(context.Background(), job.ID, "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, got.Status)

	got, err = svc.GetStatus(context.Background(), job.ID, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
}

func TestExportJobServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newExportJobServiceForTest(t)
	job := &models.ExportJob{
		ID:         "job-download",
		SyllabusID: "syl-1",
		Format:     models.ExportFormatPDF,
		Status:     models.ExportStatusFinished,
		Progress:   100,
		CreatedBy:  "teacher-1",
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL
	now := time.Now()
	job.FinishedAt = &now

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	download.File.Close()
}

func TestExportJobServiceResolveDownloadBadToken(t *testing.T) {
	svc, _, _, _ := newExportJobServiceForTest(t)

	_, err := svc.ResolveDownload(context.Background(), "bogus")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportJobServiceRecoverPendingJobs(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)
	repo.jobs["job-1"] = &models.ExportJob{ID: "job-1", SyllabusID: "syl-1", Format: models.ExportFormatPDF, Status: models.ExportStatusQueued}
	repo.jobs["job-2"] = &models.ExportJob{ID: "job-2", SyllabusID: "syl-1", Format: models.ExportFormatPDF, Status: models.ExportStatusFinished}

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "job-1", queue.jobs[0].ID)
}

func TestExportJobServiceCleanupExpiresRows(t *testing.T) {
	svc, repo, _, exportSvc := newExportJobServiceForTest(t)

	job := &models.ExportJob{
		ID:         "job-old",
		SyllabusID: "syl-1",
		Format:     models.ExportFormatPDF,
		Status:     models.ExportStatusFinished,
		Progress:   100,
		CreatedBy:  "teacher-1",
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL
	stale := time.Now().Add(-2 * time.Hour)
	job.FinishedAt = &stale

	// A finished row without a result file must still expire.
	repo.jobs["job-bare"] = &models.ExportJob{
		ID:         "job-bare",
		SyllabusID: "syl-1",
		Format:     models.ExportFormatPDF,
		Status:     models.ExportStatusFinished,
		CreatedBy:  "teacher-1",
		FinishedAt: &stale,
	}

	svc.cleanupExpired(context.Background())

	assert.Equal(t, models.ExportStatusExpired, repo.jobs["job-old"].Status)
	assert.Equal(t, models.ExportStatusExpired, repo.jobs["job-bare"].Status)
	require.NotNil(t, repo.jobs["job-old"].ResultURL)
	assert.Empty(t, *repo.jobs["job-old"].ResultURL)

	_, relPath, _, err := exportSvc.ParseToken(result.Token, true)
	require.NoError(t, err)
	_, err = exportSvc.Open(relPath)
	require.Error(t, err)

	remaining, err := repo.ListFinishedBefore(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestExportJobServiceCleanupStopsWhenRowsCannotExpire(t *testing.T) {
	repo := newExportJobRepoStub()
	stale := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 150; i++ {
		id := uuid.NewString()
		repo.jobs[id] = &models.ExportJob{
			ID:         id,
			SyllabusID: "syl-1",
			Format:     models.ExportFormatPDF,
			Status:     models.ExportStatusFinished,
			CreatedBy:  "teacher-1",
			FinishedAt: &stale,
		}
	}
	exportSvc, _ := newExportServiceForTest(t)
	finder := syllabusFinderStub{records: map[string]*models.Syllabus{"syl-1": sampleSyllabus()}}
	svc := NewExportJobService(stuckExportJobRepoStub{repo}, finder, &queueStub{}, exportSvc, zap.NewNop(), ExportJobServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})

	done := make(chan struct{})
	go func() {
		svc.cleanupExpired(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("cleanup kept re-reading a batch it cannot expire")
	}
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func TestExportWorkerHandleSuccess(t *testing.T) {
	repo := &exportJobRepoStub{
		jobs: map[string]*models.ExportJob{
			"job-1": {
				ID:         "job-1",
				SyllabusID: "syl-1",
				Format:     models.ExportFormatPDF,
				Status:     models.ExportStatusQueued,
				CreatedBy:  "teacher-1",
			},
		},
	}
	exporter := exportStub{result: &ExportResult{URL: "/api/exports/download/token"}}
	worker := NewExportWorker(repo, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusFinished, repo.jobs["job-1"].Status)
	require.Equal(t, 100, repo.jobs["job-1"].Progress)
	require.NotNil(t, repo.jobs["job-1"].ResultURL)
}

func TestExportWorkerHandleFailureRetries(t *testing.T) {
	repo := &exportJobRepoStub{
		jobs: map[string]*models.ExportJob{
			"job-1": {
				ID:         "job-1",
				SyllabusID: "syl-1",
				Format:     models.ExportFormatPDF,
				Status:     models.ExportStatusQueued,
				CreatedBy:  "teacher-1",
			},
		},
	}
	exporter := exportStub{err: errors.New("boom")}
	worker := NewExportWorker(repo, exporter, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	require.Equal(t, models.ExportStatusQueued, repo.jobs["job-1"].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	require.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
}
