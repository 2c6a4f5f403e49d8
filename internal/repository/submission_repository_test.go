package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestSubmissionRepositorySaveReturnsExistingID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO student_assignments")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("sa-existing", created))

	content := "my essay"
	s := &models.Submission{StudentID: "s-1", AssignmentID: "a-1", Status: models.SubmissionSubmitted, Content: &content}
	require.NoError(t, repo.SaveSubmission(context.Background(), s))
	assert.Equal(t, "sa-existing", s.ID)
	assert.Equal(t, created, s.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryGrade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_assignments SET status = 'graded'")).
		WithArgs("sa-1", 8.5, nil, "f-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Grade(context.Background(), "sa-1", 8.5, nil, "f-1", at))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_assignments SET status = 'graded'")).
		WithArgs("sa-2", 1.0, nil, "f-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Grade(context.Background(), "sa-2", 1, nil, "f-1", at)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryMaterializeMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, assignment_id) DO NOTHING")).
		WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.MaterializeMissing(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestSubmissionRepositoryScoreRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sc.student_id, a.course_id, a.id AS assignment_id, a.max_score, sa.status, sa.score FROM student_courses sc")).
		WithArgs(models.StudentCourseEnrolled, "s-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "course_id", "assignment_id", "max_score", "status", "score", "submitted_at"}).
			AddRow("s-1", "c-1", "a-1", 10.0, "graded", 7.0, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)).
			AddRow("s-1", "c-1", "a-2", 20.0, nil, nil, nil))

	rows, err := repo.ScoreRows(context.Background(), []string{"s-1"}, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].Score)
	assert.Equal(t, 7.0, *rows[0].Score)
	require.NotNil(t, rows[0].SubmittedAt)
	assert.Nil(t, rows[1].Status)
	assert.Nil(t, rows[1].SubmittedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryScoreRowsWithoutScope(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	rows, err := NewSubmissionRepository(db).ScoreRows(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSubmissionRepositoryAwaitingGradingSkipsDrafts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("sa.status IN ('submitted', 'pending') AND sa.submitted_at IS NOT NULL")).
		WithArgs("f-1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "status"}).
			AddRow("sa-1", "s-1", "pending"))

	rows, err := repo.AwaitingGrading(context.Background(), "f-1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.SubmissionPending, rows[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
