package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const (
	reportColumns = `r.id, r.student_id, r.term, r.academic_year, r.class_year, r.total_score, r.average_score, r.overall_grade,
r.attendance, r.conduct, r.interest, r.next_class, r.teacher_remarks, r.principal_signature, r.reopening_date, r.created_at, r.updated_at`
	reportDetailColumns = reportColumns + `, p.full_name AS student_name, s.student_number`
	reportDetailFrom    = `student_reports r
JOIN students s ON s.profile_id = r.student_id
JOIN profiles p ON p.id = r.student_id`
	gradeDetailColumns = `g.id, g.report_id, g.subject_id, g.class_score, g.exam_score, g.total_score, g.position, g.grade, g.remark, g.teacher_signature,
c.code AS subject_code, c.name AS subject_name`
)

var gradeInsertColumns = []string{"id", "report_id", "subject_id", "class_score", "exam_score", "total_score", "position", "grade", "remark", "teacher_signature"}

// ReportRepository persists report cards and their subject grades.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// UpsertWithGrades writes the report keyed by (student, term, academic year)
// and replaces its grade rows with grades. Everything happens in one
// transaction: on any failure the previous report and grades are left as they were.
func (r *ReportRepository) UpsertWithGrades(ctx context.Context, report *models.Report, grades []models.Grade) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	report.UpdatedAt = now

	const upsert = `INSERT INTO student_reports (id, student_id, term, academic_year, class_year, total_score, average_score, overall_grade,
attendance, conduct, interest, next_class, teacher_remarks, principal_signature, reopening_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
ON CONFLICT (student_id, term, academic_year) DO UPDATE SET class_year = EXCLUDED.class_year, total_score = EXCLUDED.total_score,
average_score = EXCLUDED.average_score, overall_grade = EXCLUDED.overall_grade, attendance = EXCLUDED.attendance,
conduct = EXCLUDED.conduct, interest = EXCLUDED.interest, next_class = EXCLUDED.next_class, teacher_remarks = EXCLUDED.teacher_remarks,
principal_signature = EXCLUDED.principal_signature, reopening_date = EXCLUDED.reopening_date, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	if err := tx.QueryRowxContext(ctx, upsert,
		report.ID, report.StudentID, report.Term, report.AcademicYear, report.ClassYear,
		report.TotalScore, report.AverageScore, report.OverallGrade,
		report.Attendance, report.Conduct, report.Interest, report.NextClass,
		report.TeacherRemarks, report.PrincipalSignature, report.ReopeningDate, now,
	).Scan(&report.ID, &report.CreatedAt); err != nil {
		return classify("upsert report", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM student_grades WHERE report_id = $1`, report.ID); err != nil {
		return fmt.Errorf("clear report grades: %w", err)
	}

	if len(grades) > 0 {
		insert := psql.Insert("student_grades").Columns(gradeInsertColumns...)
		for i := range grades {
			grades[i].ID = uuid.NewString()
			grades[i].ReportID = report.ID
			g := grades[i]
			insert = insert.Values(g.ID, g.ReportID, g.SubjectID, g.ClassScore, g.ExamScore, g.TotalScore, g.Position, g.Grade, g.Remark, g.TeacherSignature)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build grade insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return classify("insert report grades", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report save: %w", err)
	}
	return nil
}

// FindByID returns a report with its student and grades, each grade joined to its subject.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportDetail, error) {
	const query = `SELECT ` + reportDetailColumns + ` FROM ` + reportDetailFrom + ` WHERE r.id = $1`
	var report models.ReportDetail
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	grades, err := r.ListGrades(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Grades = grades
	return &report, nil
}

// FindByKey returns the report for (student, term, academic year).
func (r *ReportRepository) FindByKey(ctx context.Context, key models.ReportKey) (*models.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM student_reports r WHERE r.student_id = $1 AND r.term = $2 AND r.academic_year = $3`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, key.StudentID, key.Term, key.AcademicYear); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report by key: %w", err)
	}
	return &report, nil
}

// ListGrades returns a report's grades ordered by subject name.
func (r *ReportRepository) ListGrades(ctx context.Context, reportID string) ([]models.GradeDetail, error) {
	const query = `SELECT ` + gradeDetailColumns + ` FROM student_grades g JOIN courses c ON c.id = g.subject_id WHERE g.report_id = $1 ORDER BY c.name`
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, reportID); err != nil {
		return nil, fmt.Errorf("list report grades: %w", err)
	}
	return grades, nil
}

// ListForStudent returns every report header of a student, newest first.
func (r *ReportRepository) ListForStudent(ctx context.Context, studentID string) ([]models.ReportDetail, error) {
	const query = `SELECT ` + reportDetailColumns + ` FROM ` + reportDetailFrom + `
WHERE r.student_id = $1 ORDER BY r.academic_year DESC, r.updated_at DESC`
	var reports []models.ReportDetail
	if err := r.db.SelectContext(ctx, &reports, query, studentID); err != nil {
		return nil, fmt.Errorf("list student reports: %w", err)
	}
	return reports, nil
}

// ListGradesByReport loads the grades of several reports in one query, keyed
// by report id and ordered by subject name within each report.
func (r *ReportRepository) ListGradesByReport(ctx context.Context, reportIDs []string) (map[string][]models.GradeDetail, error) {
	out := make(map[string][]models.GradeDetail, len(reportIDs))
	if len(reportIDs) == 0 {
		return out, nil
	}
	const query = `SELECT ` + gradeDetailColumns + ` FROM student_grades g JOIN courses c ON c.id = g.subject_id
WHERE g.report_id = ANY($1) ORDER BY g.report_id, c.name`
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, pq.Array(reportIDs)); err != nil {
		return nil, fmt.Errorf("list grades by report: %w", err)
	}
	for _, g := range grades {
		out[g.ReportID] = append(out[g.ReportID], g)
	}
	return out, nil
}

// List returns report headers matching filter.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, int, error) {
	base := psql.Select().From(reportDetailFrom)
	if filter.StudentID != "" {
		base = base.Where(squirrel.Eq{"r.student_id": filter.StudentID})
	}
	if len(filter.StudentIDs) > 0 {
		base = base.Where(squirrel.Eq{"r.student_id": filter.StudentIDs})
	}
	if filter.Term != "" {
		base = base.Where(squirrel.Eq{"r.term": filter.Term})
	}
	if filter.AcademicYear != "" {
		base = base.Where(squirrel.Eq{"r.academic_year": filter.AcademicYear})
	}
	if filter.ClassYear != "" {
		base = base.Where(squirrel.Eq{"r.class_year": filter.ClassYear})
	}
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"updated_at":    "r.updated_at",
		"academic_year": "r.academic_year",
		"total_score":   "r.total_score",
		"student_name":  "p.full_name",
	}, "updated_at")

	var reports []models.ReportDetail
	total, err := selectPage(ctx, r.db, &reports, base, []string{reportDetailColumns}, order, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	return reports, total, nil
}

// LatestForStudent returns the most recently updated report of a student.
func (r *ReportRepository) LatestForStudent(ctx context.Context, studentID string) (*models.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM student_reports r WHERE r.student_id = $1 ORDER BY r.academic_year DESC, r.updated_at DESC LIMIT 1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return &report, nil
}

// Delete removes a report; grades and exports cascade.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM student_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return expectRow(res, "delete report")
}

// RemoveGrade hard deletes one grade row and stores the header totals that
// aggregate derives from the remaining rows. The report row is locked first
// so concurrent grade edits serialize.
func (r *ReportRepository) RemoveGrade(ctx context.Context, reportID, gradeID string, aggregate func(totals []float64) models.ReportAggregate) (models.ReportAggregate, error) {
	var agg models.ReportAggregate
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return agg, fmt.Errorf("begin remove grade: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM student_reports WHERE id = $1 FOR UPDATE`, reportID); err != nil {
		if err == sql.ErrNoRows {
			return agg, err
		}
		return agg, fmt.Errorf("lock report: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM student_grades WHERE id = $1 AND report_id = $2`, gradeID, reportID)
	if err != nil {
		return agg, fmt.Errorf("delete grade: %w", err)
	}
	if err := expectRow(res, "delete grade"); err != nil {
		return agg, err
	}
	var totals []float64
	if err := tx.SelectContext(ctx, &totals, `SELECT total_score FROM student_grades WHERE report_id = $1`, reportID); err != nil {
		return agg, fmt.Errorf("load remaining grades: %w", err)
	}
	agg = aggregate(totals)
	const update = `UPDATE student_reports SET total_score = $2, average_score = $3, overall_grade = $4, updated_at = $5 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, reportID, agg.TotalScore, agg.AverageScore, agg.OverallGrade, time.Now().UTC()); err != nil {
		return agg, fmt.Errorf("update report totals: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return agg, fmt.Errorf("commit remove grade: %w", err)
	}
	return agg, nil
}

// ClassRanking ranks a class's reports for a term by total score. Ties share a position.
func (r *ReportRepository) ClassRanking(ctx context.Context, term, academicYear, classYear string) ([]models.RankingEntry, error) {
	const query = `SELECT r.id AS report_id, r.student_id, p.full_name AS student_name, r.total_score, r.average_score, r.overall_grade,
RANK() OVER (ORDER BY r.total_score DESC) AS position
FROM student_reports r JOIN profiles p ON p.id = r.student_id
WHERE r.term = $1 AND r.academic_year = $2 AND r.class_year = $3
ORDER BY position, p.full_name`
	var rows []models.RankingEntry
	if err := r.db.SelectContext(ctx, &rows, query, term, academicYear, classYear); err != nil {
		return nil, fmt.Errorf("class ranking: %w", err)
	}
	return rows, nil
}

// RankSubjects stores each grade's position within its subject for a class and term.
func (r *ReportRepository) RankSubjects(ctx context.Context, term, academicYear, classYear string) (int64, error) {
	const query = `UPDATE student_grades g SET position = ranked.pos
FROM (
  SELECT g2.id, RANK() OVER (PARTITION BY g2.subject_id ORDER BY g2.total_score DESC) AS pos
  FROM student_grades g2 JOIN student_reports r ON r.id = g2.report_id
  WHERE r.term = $1 AND r.academic_year = $2 AND r.class_year = $3
) ranked
WHERE g.id = ranked.id`
	res, err := r.db.ExecContext(ctx, query, term, academicYear, classYear)
	if err != nil {
		return 0, fmt.Errorf("rank subjects: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rank subjects: %w", err)
	}
	return n, nil
}
