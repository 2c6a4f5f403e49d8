package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const (
	submissionColumns       = `sa.id, sa.student_id, sa.assignment_id, sa.status, sa.content, sa.submitted_at, sa.late, sa.score, sa.feedback, sa.graded_at, sa.graded_by, sa.created_at, sa.updated_at`
	submissionDetailColumns = submissionColumns + `, p.full_name AS student_name, a.title AS assignment_title, a.course_id, a.max_score, a.due_date`
	submissionDetailFrom    = `student_assignments sa
JOIN assignments a ON a.id = sa.assignment_id
JOIN profiles p ON p.id = sa.student_id`
)

// SubmissionRepository manages student_assignments.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindByID returns a submission with its context.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	const query = `SELECT ` + submissionDetailColumns + ` FROM ` + submissionDetailFrom + ` WHERE sa.id = $1`
	var s models.SubmissionDetail
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &s, nil
}

// FindByKey returns the single row for (student, assignment).
func (r *SubmissionRepository) FindByKey(ctx context.Context, studentID, assignmentID string) (*models.Submission, error) {
	const query = `SELECT ` + submissionColumns + ` FROM student_assignments sa WHERE sa.student_id = $1 AND sa.assignment_id = $2`
	var s models.Submission
	if err := r.db.GetContext(ctx, &s, query, studentID, assignmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by key: %w", err)
	}
	return &s, nil
}

// SaveSubmission inserts or updates the student's work for an assignment.
func (r *SubmissionRepository) SaveSubmission(ctx context.Context, s *models.Submission) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	const query = `INSERT INTO student_assignments (id, student_id, assignment_id, status, content, submitted_at, late, created_at, updated_at)
VALUES (:id, :student_id, :assignment_id, :status, :content, :submitted_at, :late, :created_at, :updated_at)
ON CONFLICT (student_id, assignment_id) DO UPDATE SET status = EXCLUDED.status, content = EXCLUDED.content,
submitted_at = EXCLUDED.submitted_at, late = EXCLUDED.late, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, s)
	if err != nil {
		return classify("save submission", err)
	}
	defer rows.Close() //nolint:errcheck
	if rows.Next() {
		if err := rows.Scan(&s.ID, &s.CreatedAt); err != nil {
			return fmt.Errorf("scan submission id: %w", err)
		}
	}
	return rows.Err()
}

// Grade records a score and moves the submission to graded.
func (r *SubmissionRepository) Grade(ctx context.Context, id string, score float64, feedback *string, gradedBy string, gradedAt time.Time) error {
	const query = `UPDATE student_assignments SET status = 'graded', score = $2, feedback = $3, graded_by = $4, graded_at = $5, updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, score, feedback, gradedBy, gradedAt)
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return expectRow(res, "grade submission")
}

// UpdateStatus sets the status only.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error {
	const query = `UPDATE student_assignments SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	return expectRow(res, "update submission status")
}

// List returns submissions matching filter.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, int, error) {
	base := psql.Select().From(submissionDetailFrom)
	if filter.AssignmentID != "" {
		base = base.Where(squirrel.Eq{"sa.assignment_id": filter.AssignmentID})
	}
	if filter.StudentID != "" {
		base = base.Where(squirrel.Eq{"sa.student_id": filter.StudentID})
	}
	if filter.CourseID != "" {
		base = base.Where(squirrel.Eq{"a.course_id": filter.CourseID})
	}
	if filter.Status != "" {
		base = base.Where(squirrel.Eq{"sa.status": filter.Status})
	}
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"submitted_at": "sa.submitted_at",
		"student_name": "p.full_name",
		"due_date":     "a.due_date",
		"updated_at":   "sa.updated_at",
	}, "updated_at")

	var rows []models.SubmissionDetail
	total, err := selectPage(ctx, r.db, &rows, base, []string{submissionDetailColumns}, order, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	return rows, total, nil
}

// MaterializeMissing creates not_submitted rows for every enrolled student
// lacking one and returns how many were created.
func (r *SubmissionRepository) MaterializeMissing(ctx context.Context, assignmentID string) (int64, error) {
	const query = `INSERT INTO student_assignments (id, student_id, assignment_id, status, created_at, updated_at)
SELECT gen_random_uuid(), sc.student_id, a.id, 'not_submitted', now(), now()
FROM assignments a
JOIN student_courses sc ON sc.course_id = a.course_id AND sc.status = 'ENROLLED'
WHERE a.id = $1
ON CONFLICT (student_id, assignment_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, assignmentID)
	if err != nil {
		return 0, fmt.Errorf("materialize submissions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("materialize submissions: %w", err)
	}
	return n, nil
}

// ScoreRows returns one row per (enrolled student, assignment) with the
// submission status and score when present. courseID is optional.
func (r *SubmissionRepository) ScoreRows(ctx context.Context, studentIDs []string, courseID string) ([]models.ScoreRow, error) {
	if len(studentIDs) == 0 && courseID == "" {
		return nil, nil
	}
	q := psql.Select("sc.student_id", "a.course_id", "a.id AS assignment_id", "a.max_score", "sa.status", "sa.score", "sa.submitted_at").
		From("student_courses sc").
		Join("assignments a ON a.course_id = sc.course_id").
		LeftJoin("student_assignments sa ON sa.assignment_id = a.id AND sa.student_id = sc.student_id").
		Where(squirrel.Eq{"sc.status": models.StudentCourseEnrolled})
	if len(studentIDs) > 0 {
		q = q.Where(squirrel.Eq{"sc.student_id": studentIDs})
	}
	if courseID != "" {
		q = q.Where(squirrel.Eq{"sc.course_id": courseID})
	}
	query, args, err := q.OrderBy("sc.student_id", "a.course_id", "a.due_date").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build score rows: %w", err)
	}
	var rows []models.ScoreRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list score rows: %w", err)
	}
	return rows, nil
}

// AwaitingGrading returns handed-in work in the faculty member's courses, oldest
// first. Drafts are excluded.
func (r *SubmissionRepository) AwaitingGrading(ctx context.Context, facultyID string, limit int) ([]models.SubmissionDetail, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT ` + submissionDetailColumns + ` FROM ` + submissionDetailFrom + `
JOIN faculty_courses fc ON fc.course_id = a.course_id AND fc.status = 'ACTIVE'
WHERE fc.faculty_id = $1 AND sa.status IN ('submitted', 'pending') AND sa.submitted_at IS NOT NULL
ORDER BY sa.submitted_at ASC NULLS LAST LIMIT $2`
	var rows []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &rows, query, facultyID, limit); err != nil {
		return nil, fmt.Errorf("list awaiting grading: %w", err)
	}
	return rows, nil
}
