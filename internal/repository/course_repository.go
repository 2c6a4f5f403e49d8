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

const courseColumns = `c.id, c.code, c.name, c.description, c.class_year, c.created_at, c.updated_at`

// CourseRepository manages the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT ` + courseColumns + ` FROM courses c WHERE c.id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindByCode returns a course by its unique code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	const query = `SELECT ` + courseColumns + ` FROM courses c WHERE UPPER(c.code) = UPPER($1)`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by code: %w", err)
	}
	return &course, nil
}

// FindByIDs returns the courses among ids that exist.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := psql.Select(courseColumns).From("courses c").Where(squirrel.Eq{"c.id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find courses: %w", err)
	}
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("find courses: %w", err)
	}
	return courses, nil
}

// List returns courses matching filter.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := psql.Select().From("courses c")
	if filter.ClassYear != "" {
		base = base.Where(squirrel.Eq{"c.class_year": filter.ClassYear})
	}
	if filter.FacultyID != "" {
		base = base.Where("EXISTS (SELECT 1 FROM faculty_courses fc WHERE fc.course_id = c.id AND fc.faculty_id = ? AND fc.status = 'ACTIVE')", filter.FacultyID)
	}
	if filter.StudentID != "" {
		base = base.Where("EXISTS (SELECT 1 FROM student_courses sc WHERE sc.course_id = c.id AND sc.student_id = ? AND sc.status = 'ENROLLED')", filter.StudentID)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		base = base.Where(squirrel.Or{
			squirrel.Like{"LOWER(c.code)": pattern},
			squirrel.Like{"LOWER(c.name)": pattern},
		})
	}
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"code":       "c.code",
		"name":       "c.name",
		"created_at": "c.created_at",
	}, "code")

	var courses []models.Course
	total, err := selectPage(ctx, r.db, &courses, base, []string{courseColumns}, order, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	return courses, total, nil
}

// Create inserts a course; a duplicate code yields ErrDuplicate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, name, description, class_year, created_at, updated_at) VALUES (:id, :code, :name, :description, :class_year, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return classify("create course", err)
	}
	return nil
}

// Update persists mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, name = :name, description = :description, class_year = :class_year, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return classify("update course", err)
	}
	return expectRow(res, "update course")
}

// Delete removes a course. Courses referenced by report grades cannot be deleted.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return classify("delete course", err)
	}
	return expectRow(res, "delete course")
}
