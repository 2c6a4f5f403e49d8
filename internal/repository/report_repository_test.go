package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func reportArgs() []driver.Value {
	args := make([]driver.Value, 16)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func sampleGrades() []models.Grade {
	return []models.Grade{
		{SubjectID: "math", ClassScore: 30, ExamScore: 60, TotalScore: 90, Grade: "A1", Remark: "Excellent"},
		{SubjectID: "eng", ClassScore: 20, ExamScore: 45, TotalScore: 65, Grade: "C4", Remark: "Good"},
	}
}

func TestReportRepositoryUpsertWithGradesCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	created := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO student_reports")).
		WithArgs(reportArgs()...).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing-report", created))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_grades WHERE report_id = $1")).
		WithArgs("existing-report").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_grades (id,report_id,subject_id,class_score,exam_score,total_score,position,grade,remark,teacher_signature) VALUES")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	report := &models.Report{StudentID: "s-1", Term: "First", AcademicYear: "2025/2026", TotalScore: 155, AverageScore: 77.5, OverallGrade: "B3"}
	grades := sampleGrades()
	require.NoError(t, repo.UpsertWithGrades(context.Background(), report, grades))

	assert.Equal(t, "existing-report", report.ID)
	assert.Equal(t, created, report.CreatedAt)
	for _, g := range grades {
		assert.Equal(t, "existing-report", g.ReportID)
		assert.NotEmpty(t, g.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpsertRollsBackWhenGradeInsertFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO student_reports")).
		WithArgs(reportArgs()...).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("r-1", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_grades WHERE report_id = $1")).
		WithArgs("r-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_grades")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.UpsertWithGrades(context.Background(), &models.Report{StudentID: "s-1", Term: "First", AcademicYear: "2025/2026"}, sampleGrades())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert report grades")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpsertWithoutGradesSkipsInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO student_reports")).
		WithArgs(reportArgs()...).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("r-1", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_grades WHERE report_id = $1")).
		WithArgs("r-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertWithGrades(context.Background(), &models.Report{StudentID: "s-1", Term: "First", AcademicYear: "2025/2026"}, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryRemoveGradeAggregatesInsideTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM student_reports WHERE id = $1 FOR UPDATE")).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r-1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_grades WHERE id = $1 AND report_id = $2")).
		WithArgs("g-2", "r-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT total_score FROM student_grades WHERE report_id = $1")).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_score"}).AddRow(90.0).AddRow(70.0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_reports SET total_score = $2, average_score = $3, overall_grade = $4")).
		WithArgs("r-1", 160.0, 80.0, "A1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen []float64
	agg, err := repo.RemoveGrade(context.Background(), "r-1", "g-2", func(totals []float64) models.ReportAggregate {
		seen = totals
		return models.ReportAggregate{TotalScore: 160, AverageScore: 80, OverallGrade: "A1"}
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{90, 70}, seen)
	assert.Equal(t, 160.0, agg.TotalScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryRemoveGradeMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM student_reports WHERE id = $1 FOR UPDATE")).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r-1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_grades WHERE id = $1 AND report_id = $2")).
		WithArgs("g-x", "r-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.RemoveGrade(context.Background(), "r-1", "g-x", func([]float64) models.ReportAggregate {
		t.Fatal("aggregate must not run when nothing was deleted")
		return models.ReportAggregate{}
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListGradesByReport(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	gradeCols := []string{
		"id", "report_id", "subject_id", "class_score", "exam_score", "total_score", "position", "grade", "remark",
		"teacher_signature", "subject_code", "subject_name",
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE g.report_id = ANY($1) ORDER BY g.report_id, c.name")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(gradeCols).
			AddRow("g-1", "r-1", "eng", 20.0, 50.0, 70.0, nil, "B3", "Good", nil, "ENG", "English").
			AddRow("g-2", "r-1", "math", 30.0, 60.0, 90.0, nil, "A1", "Excellent", nil, "MATH", "Mathematics").
			AddRow("g-3", "r-2", "math", 25.0, 40.0, 65.0, nil, "C4", "Credit", nil, "MATH", "Mathematics"))

	grades, err := repo.ListGradesByReport(context.Background(), []string{"r-1", "r-2", "r-3"})
	require.NoError(t, err)
	require.Len(t, grades["r-1"], 2)
	require.Len(t, grades["r-2"], 1)
	assert.Empty(t, grades["r-3"])
	assert.Equal(t, "Mathematics", grades["r-1"][1].SubjectName)
	assert.NoError(t, mock.ExpectationsWereMet())

	empty, err := repo.ListGradesByReport(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReportRepositoryFindByIDLoadsGrades(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_reports r")).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "student_id", "term", "academic_year", "class_year", "total_score", "average_score", "overall_grade",
			"attendance", "conduct", "interest", "next_class", "teacher_remarks", "principal_signature", "reopening_date",
			"created_at", "updated_at", "student_name", "student_number",
		}).AddRow("r-1", "s-1", "First", "2025/2026", "JHS1", 90.0, 90.0, "A1", nil, nil, nil, nil, nil, nil, nil, now, now, "Ada", "S-001"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_grades g JOIN courses c ON c.id = g.subject_id WHERE g.report_id = $1")).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "report_id", "subject_id", "class_score", "exam_score", "total_score", "position", "grade", "remark",
			"teacher_signature", "subject_code", "subject_name",
		}).AddRow("g-1", "r-1", "math", 30.0, 60.0, 90.0, 1, "A1", "Excellent", nil, "MATH", "Mathematics"))

	report, err := repo.FindByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", report.StudentName)
	require.Len(t, report.Grades, 1)
	require.NotNil(t, report.Grades[0].Position)
	assert.Equal(t, 1, *report.Grades[0].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryClassRanking(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("RANK() OVER (ORDER BY r.total_score DESC) AS position")).
		WithArgs("First", "2025/2026", "JHS1").
		WillReturnRows(sqlmock.NewRows([]string{"report_id", "student_id", "student_name", "total_score", "average_score", "overall_grade", "position"}).
			AddRow("r-1", "s-1", "Ada", 180.0, 90.0, "A1", 1).
			AddRow("r-2", "s-2", "Bola", 180.0, 90.0, "A1", 1).
			AddRow("r-3", "s-3", "Chidi", 120.0, 60.0, "C4", 3))

	rows, err := repo.ClassRanking(context.Background(), "First", "2025/2026", "JHS1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rows[0].Position, rows[1].Position)
	assert.Equal(t, 3, rows[2].Position)
}
