package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/export"
	"github.com/noah-isme/school-portal-api/pkg/jobs"
	"github.com/noah-isme/school-portal-api/pkg/storage"
)

// ExportJobType tags report card jobs on the queue.
const ExportJobType = "report_card"

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string, progress int) error
	MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, reason string, finishedAt time.Time) error
	ListQueued(ctx context.Context, afterCreated time.Time, afterID string, limit int) ([]models.ExportJob, error)
	RequeueProcessing(ctx context.Context) (int64, error)
	ExpireFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type reportLoader interface {
	FindByID(ctx context.Context, id string) (*models.ReportDetail, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes report card exports.
type ExportConfig struct {
	APIPrefix       string
	SchoolName      string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	// Disabled rejects new export requests; the worker pool is not running.
	Disabled bool
}

// ExportDownload is an opened export file ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ReportExportService queues report card renders and serves their downloads.
type ReportExportService struct {
	repo    exportJobStore
	reports reportLoader
	access  studentAccess
	queue   jobDispatcher
	storage fileStorage
	signer  *storage.SignedURLSigner
	cfg     ExportConfig
	logger  *zap.Logger

	recoverBatch int
}

const defaultRecoverBatch = 50

// NewReportExportService constructs a ReportExportService.
func NewReportExportService(repo exportJobStore, reports reportLoader, guardians guardianChecker, queue jobDispatcher, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ReportExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportExportService{
		repo:    repo,
		reports: reports,
		access:  studentAccess{guardians: guardians},
		queue:   queue,
		storage: files,
		signer:  signer,
		cfg:     cfg,
		logger:  logger,

		recoverBatch: defaultRecoverBatch,
	}
}

// CreateJob persists an export request and hands it to the worker queue.
func (s *ReportExportService) CreateJob(ctx context.Context, actor models.Actor, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	if s.cfg.Disabled {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "report card exports are disabled")
	}
	if req.ReportID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "report_id is required")
	}
	if req.Format != models.ExportFormatCSV && req.Format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	report, err := s.reports.FindByID(ctx, req.ReportID)
	if err != nil {
		return nil, repoError(err, "report", "failed to load report")
	}
	if err := s.access.check(ctx, actor, report.StudentID); err != nil {
		return nil, err
	}

	job := &models.ExportJob{ReportID: req.ReportID, Format: req.Format, Status: models.ExportStatusQueued, CreatedBy: actor.ProfileID}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to enqueue job", time.Now().UTC()); markErr != nil {
			s.logger.Warn("failed to mark export failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Internal(err, "failed to enqueue export job")
	}
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus returns job progress to its creator or an admin.
func (s *ReportExportService) GetStatus(ctx context.Context, actor models.Actor, id string) (*dto.ExportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "export job", "failed to load export job")
	}
	if !actor.IsAdmin() && job.CreatedBy != actor.ProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this export")
	}
	resp := &dto.ExportStatusResponse{
		ID:        job.ID,
		ReportID:  job.ReportID,
		Format:    job.Format,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ReportExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, repoError(err, "export job", "failed to load export job")
	}
	if job.Status != models.ExportStatusFinished || job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export is not available")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file expired")
		}
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	contentType := "text/csv"
	if job.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	return &ExportDownload{File: file, Filename: filepath.Base(relPath), ContentType: contentType, ExpiresAt: expiresAt}, nil
}

// RecoverPendingJobs re-dispatches unfinished jobs after a restart. Jobs a
// previous process left PROCESSING are queued again first, then every
// queued job is enqueued in batches.
func (s *ReportExportService) RecoverPendingJobs(ctx context.Context) {
	if n, err := s.repo.RequeueProcessing(ctx); err != nil {
		s.logger.Warn("failed to reset interrupted exports", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("reset interrupted exports", zap.Int64("count", n))
	}

	var (
		afterCreated time.Time
		afterID      string
		requeued     int
	)
	for {
		batch, err := s.repo.ListQueued(ctx, afterCreated, afterID, s.recoverBatch)
		if err != nil {
			s.logger.Warn("failed to recover queued exports", zap.Error(err))
			break
		}
		for _, job := range batch {
			if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType}); err != nil {
				s.logger.Warn("failed to requeue export", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
			requeued++
		}
		if len(batch) < s.recoverBatch {
			break
		}
		last := batch[len(batch)-1]
		afterCreated, afterID = last.CreatedAt, last.ID
	}
	if requeued > 0 {
		s.logger.Info("requeued pending exports", zap.Int("count", requeued))
	}
}

// StartCleanup purges expired export files every CleanupInterval until ctx ends.
func (s *ReportExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup(ctx)
			}
		}
	}()
}

// Cleanup removes files older than ResultTTL and clears their download URLs.
func (s *ReportExportService) Cleanup(ctx context.Context) {
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export file cleanup failed", zap.Error(err))
	}
	expired, err := s.repo.ExpireFinishedBefore(ctx, time.Now().UTC().Add(-s.cfg.ResultTTL))
	if err != nil {
		s.logger.Warn("export expiry failed", zap.Error(err))
		return
	}
	if len(removed) > 0 || expired > 0 {
		s.logger.Info("expired exports cleaned", zap.Int("files", len(removed)), zap.Int64("jobs", expired))
	}
}

// ReportExportWorker renders queued report cards.
type ReportExportWorker struct {
	repo      exportJobStore
	reports   reportLoader
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[models.ExportFormat]export.Renderer
	metrics   *MetricsService
	cfg       ExportConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportExportWorker constructs the worker with CSV and PDF renderers.
func NewReportExportWorker(repo exportJobStore, reports reportLoader, files fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ReportExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportExportWorker{
		repo:    repo,
		reports: reports,
		storage: files,
		signer:  signer,
		renderers: map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(cfg.SchoolName),
		},
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle processes one queue job; a returned error lets the queue retry.
func (w *ReportExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	started := w.now()
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load export %s: %w", job.ID, err)
	}
	if record.Status == models.ExportStatusFinished {
		return nil
	}
	if err := w.repo.MarkProcessing(ctx, job.ID, 10); err != nil {
		return err
	}
	url, err := w.generate(ctx, record)
	if err != nil {
		w.metrics.RecordExport(string(record.Format), false, w.now().Sub(started))
		return err
	}
	if err := w.repo.MarkFinished(ctx, job.ID, url, w.now().UTC()); err != nil {
		return err
	}
	w.metrics.RecordExport(string(record.Format), true, w.now().Sub(started))
	w.logger.Info("report card exported", zap.String("job_id", job.ID), zap.String("format", string(record.Format)))
	return nil
}

// GiveUp marks a job failed once the queue stops retrying it.
func (w *ReportExportWorker) GiveUp(job jobs.Job, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.repo.MarkFailed(ctx, job.ID, cause.Error(), w.now().UTC()); err != nil {
		w.logger.Warn("failed to mark export failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (w *ReportExportWorker) generate(ctx context.Context, job *models.ExportJob) (string, error) {
	renderer, ok := w.renderers[job.Format]
	if !ok {
		return "", fmt.Errorf("unsupported export format %q", job.Format)
	}
	report, err := w.reports.FindByID(ctx, job.ReportID)
	if err != nil {
		return "", fmt.Errorf("load report %s: %w", job.ReportID, err)
	}
	payload, err := renderer.Render(ReportCardDocument(report))
	if err != nil {
		return "", fmt.Errorf("render report card: %w", err)
	}
	name := fmt.Sprintf("report-cards/%s-%s-%s.%s", sanitize(report.StudentNumber), sanitize(report.Term), shortID(job.ID), renderer.Extension())
	relPath, err := w.storage.Save(name, payload)
	if err != nil {
		return "", err
	}
	token, _, err := w.signer.Generate(job.ID, relPath)
	if err != nil {
		return "", err
	}
	prefix := strings.TrimRight(w.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/exports/download/%s", prefix, token), nil
}

// ReportCardDocument lays a report out as student details, a grade table and remarks.
func ReportCardDocument(r *models.ReportDetail) export.Document {
	doc := export.Document{
		Title: "Terminal Report",
		Header: []export.Field{
			{Label: "Student", Value: r.StudentName},
			{Label: "Student No.", Value: r.StudentNumber},
			{Label: "Class", Value: deref(r.ClassYear)},
			{Label: "Term", Value: r.Term},
			{Label: "Academic Year", Value: r.AcademicYear},
		},
		Table: export.Dataset{
			Headers: []string{"Subject", "Class Score", "Exam Score", "Total", "Position", "Grade", "Remark"},
			Rows:    make([]map[string]string, 0, len(r.Grades)),
		},
		Footer: []export.Field{
			{Label: "Total Score", Value: formatScore(r.TotalScore)},
			{Label: "Average", Value: formatScore(r.AverageScore)},
			{Label: "Overall Grade", Value: r.OverallGrade},
			{Label: "Attendance", Value: deref(r.Attendance)},
			{Label: "Conduct", Value: deref(r.Conduct)},
			{Label: "Interest", Value: deref(r.Interest)},
			{Label: "Promoted To", Value: deref(r.NextClass)},
			{Label: "Class Teacher's Remarks", Value: deref(r.TeacherRemarks)},
			{Label: "Head Teacher", Value: deref(r.PrincipalSignature)},
		},
	}
	if r.ReopeningDate != nil {
		doc.Footer = append(doc.Footer, export.Field{Label: "Reopening Date", Value: r.ReopeningDate.Format("2 January 2006")})
	}
	for _, g := range r.Grades {
		position := ""
		if g.Position != nil {
			position = strconv.Itoa(*g.Position)
		}
		subject := g.SubjectName
		if subject == "" {
			subject = g.SubjectID
		}
		doc.Table.Rows = append(doc.Table.Rows, map[string]string{
			"Subject":     subject,
			"Class Score": formatScore(g.ClassScore),
			"Exam Score":  formatScore(g.ExamScore),
			"Total":       formatScore(g.TotalScore),
			"Position":    position,
			"Grade":       g.Grade.Grade,
			"Remark":      g.Remark,
		})
	}
	return doc
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "report"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
