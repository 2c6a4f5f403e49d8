package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/jobs"
	"github.com/noah-isme/school-portal-api/pkg/storage"
)

type memoryExportRepo struct {
	mu        sync.Mutex
	jobs      map[string]*models.ExportJob
	seq       int
	listCalls int
}

func newMemoryExportRepo() *memoryExportRepo {
	return &memoryExportRepo{jobs: map[string]*models.ExportJob{}}
}

func (m *memoryExportRepo) Create(ctx context.Context, job *models.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	job.ID = "job-0000" + string(rune('0'+m.seq))
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memoryExportRepo) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryExportRepo) MarkProcessing(ctx context.Context, id string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = models.ExportStatusProcessing
	m.jobs[id].Progress = progress
	return nil
}

func (m *memoryExportRepo) MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status = models.ExportStatusFinished
	j.Progress = 100
	j.ResultURL = &resultURL
	j.FinishedAt = &finishedAt
	return nil
}

func (m *memoryExportRepo) MarkFailed(ctx context.Context, id, reason string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status = models.ExportStatusFailed
	j.ErrorMessage = &reason
	j.FinishedAt = &finishedAt
	return nil
}

func (m *memoryExportRepo) ListQueued(ctx context.Context, afterCreated time.Time, afterID string, limit int) ([]models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var out []models.ExportJob
	for _, j := range m.jobs {
		if j.Status != models.ExportStatusQueued {
			continue
		}
		if j.CreatedAt.Before(afterCreated) || (j.CreatedAt.Equal(afterCreated) && j.ID <= afterID) {
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryExportRepo) RequeueProcessing(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, j := range m.jobs {
		if j.Status == models.ExportStatusProcessing {
			j.Status = models.ExportStatusQueued
			j.Progress = 0
			n++
		}
	}
	return n, nil
}

func (m *memoryExportRepo) ExpireFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubReportLoader struct {
	reports map[string]*models.ReportDetail
}

func (s stubReportLoader) FindByID(ctx context.Context, id string) (*models.ReportDetail, error) {
	if r, ok := s.reports[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

type recordingDispatcher struct {
	queued []jobs.Job
	err    error
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.queued = append(d.queued, job)
	return nil
}

type exportFixture struct {
	svc    *ReportExportService
	worker *ReportExportWorker
	repo   *memoryExportRepo
	queue  *recordingDispatcher
}

func newExportFixture(t *testing.T) exportFixture {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)
	position := 1
	reports := stubReportLoader{reports: map[string]*models.ReportDetail{
		"rep-1": {
			Report:        models.Report{ID: "rep-1", StudentID: "stu-1", Term: "First Term", AcademicYear: "2024/2025", TotalScore: 135, AverageScore: 67.5, OverallGrade: "C4"},
			StudentName:   "Ama Mensah",
			StudentNumber: "STU/001",
			Grades: []models.GradeDetail{
				{Grade: models.Grade{SubjectID: "math", ClassScore: 30, ExamScore: 55, TotalScore: 85, Position: &position, Grade: "B2", Remark: "Excellent"}, SubjectName: "Mathematics"},
				{Grade: models.Grade{SubjectID: "eng", ClassScore: 20, ExamScore: 30, TotalScore: 50, Grade: "C6", Remark: "Credit"}},
			},
		},
	}}
	repo := newMemoryExportRepo()
	queue := &recordingDispatcher{}
	guardians := &mockGuardians{children: map[string][]models.StudentDetail{
		"guard-1": {{Student: models.Student{ProfileID: "stu-1"}}},
	}}
	cfg := ExportConfig{APIPrefix: "/api/v1/", SchoolName: "Unity Academy", ResultTTL: time.Hour}
	return exportFixture{
		svc:    NewReportExportService(repo, reports, guardians, queue, files, signer, cfg, nil),
		worker: NewReportExportWorker(repo, reports, files, signer, nil, cfg, nil),
		repo:   repo,
		queue:  queue,
	}
}

func TestExportRoundTripProducesDownloadableCSV(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateJob(ctx, guardianActor, dto.ExportRequest{ReportID: "rep-1", Format: models.ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, created.Status)
	require.Len(t, f.queue.queued, 1)
	assert.Equal(t, ExportJobType, f.queue.queued[0].Type)

	require.NoError(t, f.worker.Handle(ctx, f.queue.queued[0]))

	status, err := f.svc.GetStatus(ctx, guardianActor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	require.NotNil(t, status.ResultURL)
	require.True(t, strings.HasPrefix(*status.ResultURL, "/api/v1/exports/download/"))

	token := strings.TrimPrefix(*status.ResultURL, "/api/v1/exports/download/")
	download, err := f.svc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck
	assert.Equal(t, "text/csv", download.ContentType)
	assert.True(t, strings.HasPrefix(download.Filename, "STU-001-First-Term-"))

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Mathematics")
	assert.Contains(t, string(body), "eng")
	assert.Contains(t, string(body), "B2")
}

func TestHandleSkipsFinishedJobs(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateJob(ctx, adminActor, dto.ExportRequest{ReportID: "rep-1", Format: models.ExportFormatPDF})
	require.NoError(t, err)
	require.NoError(t, f.worker.Handle(ctx, jobs.Job{ID: created.ID}))
	first := *f.repo.jobs[created.ID].ResultURL

	require.NoError(t, f.worker.Handle(ctx, jobs.Job{ID: created.ID}))
	assert.Equal(t, first, *f.repo.jobs[created.ID].ResultURL)
}

func TestCreateJobRejectsUnrelatedGuardianAndBadFormat(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateJob(ctx, models.Actor{ProfileID: "guard-2", Role: models.RoleGuardian}, dto.ExportRequest{ReportID: "rep-1", Format: models.ExportFormatCSV})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.CreateJob(ctx, adminActor, dto.ExportRequest{ReportID: "rep-1", Format: "xlsx"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.CreateJob(ctx, adminActor, dto.ExportRequest{ReportID: "rep-9", Format: models.ExportFormatCSV})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, f.queue.queued)
}

func TestEnqueueFailureMarksJobFailed(t *testing.T) {
	f := newExportFixture(t)
	f.queue.err = jobs.ErrQueueFull

	_, err := f.svc.CreateJob(context.Background(), adminActor, dto.ExportRequest{ReportID: "rep-1", Format: models.ExportFormatCSV})
	require.Error(t, err)
	require.Len(t, f.repo.jobs, 1)
	for _, j := range f.repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, j.Status)
	}
}

func TestGiveUpRecordsCause(t *testing.T) {
	f := newExportFixture(t)
	created, err := f.svc.CreateJob(context.Background(), adminActor, dto.ExportRequest{ReportID: "rep-1", Format: models.ExportFormatCSV})
	require.NoError(t, err)

	f.worker.GiveUp(jobs.Job{ID: created.ID}, errors.New("render failed"))
	job := f.repo.jobs[created.ID]
	assert.Equal(t, models.ExportStatusFailed, job.Status)
	assert.Equal(t, "render failed", *job.ErrorMessage)
}

func TestStatusAndDownloadAccess(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	created, err := f.svc.CreateJob(ctx, facultyActor, dto.ExportRequest{ReportID: "rep-1", Format: models.ExportFormatCSV})
	require.NoError(t, err)

	_, err = f.svc.GetStatus(ctx, studentActor, created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, err = f.svc.GetStatus(ctx, adminActor, created.ID)
	assert.NoError(t, err)

	_, err = f.svc.ResolveDownload(ctx, "not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestRecoverPendingJobsRequeues(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateJob(ctx, adminActor, dto.ExportRequest{ReportID: "rep-1", Format: models.ExportFormatCSV})
	require.NoError(t, err)

	f.svc.RecoverPendingJobs(ctx)
	assert.Len(t, f.queue.queued, 2)
}

func TestRecoverPendingJobsResetsInterruptedAndPagesThroughQueue(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 5; i++ {
		created, err := f.svc.CreateJob(ctx, adminActor, dto.ExportRequest{ReportID: "rep-1", Format: models.ExportFormatCSV})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	require.NoError(t, f.repo.MarkProcessing(ctx, ids[1], 10))
	require.NoError(t, f.repo.MarkFinished(ctx, ids[4], "/done", time.Now()))
	f.queue.queued = nil
	f.svc.recoverBatch = 2

	f.svc.RecoverPendingJobs(ctx)

	var requeued []string
	for _, j := range f.queue.queued {
		requeued = append(requeued, j.ID)
	}
	assert.Equal(t, ids[:4], requeued)
	assert.Equal(t, models.ExportStatusQueued, f.repo.jobs[ids[1]].Status)
	assert.Zero(t, f.repo.jobs[ids[1]].Progress)
	assert.Equal(t, 3, f.repo.listCalls)
}

func TestReportCardDocumentFallsBackToSubjectID(t *testing.T) {
	f := newExportFixture(t)
	report, err := f.worker.reports.FindByID(context.Background(), "rep-1")
	require.NoError(t, err)
	doc := ReportCardDocument(report)

	require.Len(t, doc.Table.Rows, 2)
	assert.Equal(t, "Mathematics", doc.Table.Rows[0]["Subject"])
	assert.Equal(t, "1", doc.Table.Rows[0]["Position"])
	assert.Equal(t, "eng", doc.Table.Rows[1]["Subject"])
	assert.Equal(t, "", doc.Table.Rows[1]["Position"])
}

func TestReportCardDocumentCarriesLetterGrades(t *testing.T) {
	f := newExportFixture(t)
	report, err := f.worker.reports.FindByID(context.Background(), "rep-1")
	require.NoError(t, err)
	doc := ReportCardDocument(report)

	require.Len(t, doc.Table.Rows, 2)
	assert.Equal(t, "B2", doc.Table.Rows[0]["Grade"])
	assert.Equal(t, "C6", doc.Table.Rows[1]["Grade"])
}

func TestCreateJobRejectedWhenDisabled(t *testing.T) {
	f := newExportFixture(t)
	f.svc.cfg.Disabled = true

	_, err := f.svc.CreateJob(context.Background(), adminActor, dto.ExportRequest{ReportID: "rep-1", Format: models.ExportFormatCSV})
	assert.True(t, errors.Is(err, appErrors.ErrFeatureDisabled))
	assert.Empty(t, f.queue.queued)
	assert.Empty(t, f.repo.jobs)
}
