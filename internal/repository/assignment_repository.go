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

const assignmentDetailColumns = `a.id, a.course_id, a.title, a.description, a.due_date, a.max_score, a.created_by, a.created_at, a.updated_at, c.code AS course_code, c.name AS course_name`

// AssignmentRepository manages assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns an assignment with its course.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	const query = `SELECT ` + assignmentDetailColumns + ` FROM assignments a JOIN courses c ON c.id = a.course_id WHERE a.id = $1`
	var a models.AssignmentDetail
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &a, nil
}

// List returns assignments matching filter.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	base := psql.Select().From("assignments a").Join("courses c ON c.id = a.course_id")
	if filter.CourseID != "" {
		base = base.Where(squirrel.Eq{"a.course_id": filter.CourseID})
	}
	if filter.StudentID != "" {
		base = base.Where("EXISTS (SELECT 1 FROM student_courses sc WHERE sc.course_id = a.course_id AND sc.student_id = ? AND sc.status = 'ENROLLED')", filter.StudentID)
	}
	if filter.DueAfter != nil {
		base = base.Where(squirrel.GtOrEq{"a.due_date": *filter.DueAfter})
	}
	if filter.DueBefore != nil {
		base = base.Where(squirrel.Lt{"a.due_date": *filter.DueBefore})
	}
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"due_date":   "a.due_date",
		"title":      "a.title",
		"created_at": "a.created_at",
	}, "due_date")

	var rows []models.AssignmentDetail
	total, err := selectPage(ctx, r.db, &rows, base, []string{assignmentDetailColumns}, order, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}
	return rows, total, nil
}

// ListByCourse returns every assignment of a course ordered by due date.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error) {
	const query = `SELECT id, course_id, title, description, due_date, max_score, created_by, created_at, updated_at FROM assignments WHERE course_id = $1 ORDER BY due_date, title`
	var rows []models.Assignment
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list course assignments: %w", err)
	}
	return rows, nil
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	const query = `INSERT INTO assignments (id, course_id, title, description, due_date, max_score, created_by, created_at, updated_at) VALUES (:id, :course_id, :title, :description, :due_date, :max_score, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return classify("create assignment", err)
	}
	return nil
}

// Update persists mutable assignment fields.
func (r *AssignmentRepository) Update(ctx context.Context, a *models.Assignment) error {
	a.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = :title, description = :description, due_date = :due_date, max_score = :max_score, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return expectRow(res, "update assignment")
}

// Delete removes an assignment and its submissions.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return expectRow(res, "delete assignment")
}
