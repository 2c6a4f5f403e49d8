package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const exportColumns = `id, report_id, format, status, progress, result_url, created_by, created_at, finished_at, error_message`

// ExportRepository persists report card export jobs.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs the repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts a queued export job.
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_exports (` + exportColumns + `)
VALUES (:id, :report_id, :format, :status, :progress, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return classify("create export job", err)
	}
	return nil
}

// GetByID returns an export job.
func (r *ExportRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT ` + exportColumns + ` FROM report_exports WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return &job, nil
}

// MarkProcessing moves a job to PROCESSING with the given progress.
func (r *ExportRepository) MarkProcessing(ctx context.Context, id string, progress int) error {
	const query = `UPDATE report_exports SET status = 'PROCESSING', progress = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, progress); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}
	return nil
}

// MarkFinished stores the download URL.
func (r *ExportRepository) MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error {
	const query = `UPDATE report_exports SET status = 'FINISHED', progress = 100, result_url = $2, finished_at = $3, error_message = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, resultURL, finishedAt); err != nil {
		return fmt.Errorf("mark export finished: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason.
func (r *ExportRepository) MarkFailed(ctx context.Context, id, reason string, finishedAt time.Time) error {
	const query = `UPDATE report_exports SET status = 'FAILED', error_message = $2, finished_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, reason, finishedAt); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}

// ListQueued returns queued jobs oldest first, starting after the
// (afterCreated, afterID) cursor. A zero cursor starts from the beginning.
func (r *ExportRepository) ListQueued(ctx context.Context, afterCreated time.Time, afterID string, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + exportColumns + ` FROM report_exports
WHERE status = 'QUEUED' AND (created_at, id::text) > ($1, $2)
ORDER BY created_at ASC, id::text ASC LIMIT $3`
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, afterCreated, afterID, limit); err != nil {
		return nil, fmt.Errorf("list queued exports: %w", err)
	}
	return jobs, nil
}

// RequeueProcessing moves jobs left PROCESSING by a stopped worker back to
// QUEUED and returns how many changed.
func (r *ExportRepository) RequeueProcessing(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE report_exports SET status = 'QUEUED', progress = 0 WHERE status = 'PROCESSING'`)
	if err != nil {
		return 0, fmt.Errorf("requeue processing exports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("requeue processing exports: %w", err)
	}
	return n, nil
}

// ExpireFinishedBefore clears the URL of finished jobs older than cutoff and returns how many changed.
func (r *ExportRepository) ExpireFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `UPDATE report_exports SET result_url = NULL WHERE status = 'FINISHED' AND finished_at < $1 AND result_url IS NOT NULL`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire exports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire exports: %w", err)
	}
	return n, nil
}
