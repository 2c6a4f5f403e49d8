package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestExportRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_exports")).
		WithArgs(sqlmock.AnyArg(), "r-1", models.ExportFormatPDF, models.ExportStatusQueued, 0, nil, "f-1", sqlmock.AnyArg(), nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{ReportID: "r-1", Format: models.ExportFormatPDF, CreatedBy: "f-1"}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM report_exports WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "report_id", "format", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}).
			AddRow(job.ID, "r-1", "pdf", "QUEUED", 0, nil, "f-1", time.Now(), nil, nil))

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, fetched.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportRepositoryMarkFinished(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_exports SET status = 'FINISHED', progress = 100")).
		WithArgs("job-1", "/api/v1/exports/download/tok", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkFinished(context.Background(), "job-1", "/api/v1/exports/download/tok", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportRepositoryListQueuedUsesCursor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	after := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'QUEUED' AND (created_at, id::text) > ($1, $2)")).
		WithArgs(after, "job-1", 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "report_id", "format", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}).
			AddRow("job-2", "r-1", "csv", "QUEUED", 0, nil, "f-1", after.Add(time.Minute), nil, nil))

	jobs, err := repo.ListQueued(context.Background(), after, "job-1", 50)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-2", jobs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportRepositoryRequeueProcessing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_exports SET status = 'QUEUED', progress = 0 WHERE status = 'PROCESSING'")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.RequeueProcessing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
