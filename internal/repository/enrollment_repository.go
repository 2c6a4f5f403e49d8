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
	studentCourseColumns = `sc.id, sc.student_id, sc.course_id, sc.status, sc.enrolled_at, sc.dropped_at`
	studentCourseDetail  = studentCourseColumns + `, p.full_name AS student_name, s.student_number, c.code AS course_code, c.name AS course_name`
	facultyCourseColumns = `fc.id, fc.faculty_id, fc.course_id, fc.status, fc.assigned_at`
	facultyCourseDetail  = facultyCourseColumns + `, p.full_name AS faculty_name, c.code AS course_code, c.name AS course_name`
)

// EnrollmentRepository manages student_courses and faculty_courses.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindStudentCourse returns the (student, course) row in any status.
func (r *EnrollmentRepository) FindStudentCourse(ctx context.Context, studentID, courseID string) (*models.StudentCourse, error) {
	const query = `SELECT ` + studentCourseColumns + ` FROM student_courses sc WHERE sc.student_id = $1 AND sc.course_id = $2`
	var sc models.StudentCourse
	if err := r.db.GetContext(ctx, &sc, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student course: %w", err)
	}
	return &sc, nil
}

// Enroll inserts an enrollment or re-activates a dropped one, keeping one row per pair.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, courseID string) (*models.StudentCourse, error) {
	const query = `INSERT INTO student_courses (id, student_id, course_id, status, enrolled_at)
VALUES ($1, $2, $3, 'ENROLLED', $4)
ON CONFLICT (student_id, course_id) DO UPDATE SET status = 'ENROLLED', enrolled_at = EXCLUDED.enrolled_at, dropped_at = NULL
RETURNING id, student_id, course_id, status, enrolled_at, dropped_at`
	var sc models.StudentCourse
	if err := r.db.GetContext(ctx, &sc, query, uuid.NewString(), studentID, courseID, time.Now().UTC()); err != nil {
		return nil, classify("enroll student", err)
	}
	return &sc, nil
}

// Drop flips an active enrollment to DROPPED.
func (r *EnrollmentRepository) Drop(ctx context.Context, studentID, courseID string) error {
	const query = `UPDATE student_courses SET status = 'DROPPED', dropped_at = $3 WHERE student_id = $1 AND course_id = $2 AND status = 'ENROLLED'`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("drop enrollment: %w", err)
	}
	return expectRow(res, "drop enrollment")
}

// List returns enrollments with names joined in.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.StudentCourseDetail, int, error) {
	base := psql.Select().From("student_courses sc").
		Join("students s ON s.profile_id = sc.student_id").
		Join("profiles p ON p.id = s.profile_id").
		Join("courses c ON c.id = sc.course_id")
	if filter.StudentID != "" {
		base = base.Where(squirrel.Eq{"sc.student_id": filter.StudentID})
	}
	if filter.CourseID != "" {
		base = base.Where(squirrel.Eq{"sc.course_id": filter.CourseID})
	}
	if filter.Status != "" {
		base = base.Where(squirrel.Eq{"sc.status": filter.Status})
	}
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"enrolled_at":  "sc.enrolled_at",
		"student_name": "p.full_name",
		"course_code":  "c.code",
	}, "enrolled_at")

	var rows []models.StudentCourseDetail
	total, err := selectPage(ctx, r.db, &rows, base, []string{studentCourseDetail}, order, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	return rows, total, nil
}

// ActiveStudentIDs returns the students currently enrolled in a course.
func (r *EnrollmentRepository) ActiveStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT student_id FROM student_courses WHERE course_id = $1 AND status = 'ENROLLED' ORDER BY student_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return ids, nil
}

// IsEnrolled reports whether the student is actively enrolled.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM student_courses WHERE student_id = $1 AND course_id = $2 AND status = 'ENROLLED')`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return ok, nil
}

// AssignFaculty creates an active assignment. A second active row for the
// same pair violates uq_faculty_courses_active and yields ErrDuplicate.
func (r *EnrollmentRepository) AssignFaculty(ctx context.Context, fc *models.FacultyCourse) error {
	if fc.ID == "" {
		fc.ID = uuid.NewString()
	}
	if fc.Status == "" {
		fc.Status = models.FacultyCourseActive
	}
	fc.AssignedAt = time.Now().UTC()
	const query = `INSERT INTO faculty_courses (id, faculty_id, course_id, status, assigned_at) VALUES (:id, :faculty_id, :course_id, :status, :assigned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fc); err != nil {
		return classify("assign faculty", err)
	}
	return nil
}

// UnassignFaculty hard deletes the faculty's assignment rows for the course.
func (r *EnrollmentRepository) UnassignFaculty(ctx context.Context, facultyID, courseID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM faculty_courses WHERE faculty_id = $1 AND course_id = $2`, facultyID, courseID)
	if err != nil {
		return fmt.Errorf("unassign faculty: %w", err)
	}
	return expectRow(res, "unassign faculty")
}

// IsFacultyAssigned reports whether the faculty member actively teaches the course.
func (r *EnrollmentRepository) IsFacultyAssigned(ctx context.Context, facultyID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM faculty_courses WHERE faculty_id = $1 AND course_id = $2 AND status = 'ACTIVE')`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, facultyID, courseID); err != nil {
		return false, fmt.Errorf("check faculty assignment: %w", err)
	}
	return ok, nil
}

// ListFacultyCourses returns a faculty member's active courses.
func (r *EnrollmentRepository) ListFacultyCourses(ctx context.Context, facultyID string) ([]models.FacultyCourseDetail, error) {
	const query = `SELECT ` + facultyCourseDetail + ` FROM faculty_courses fc
JOIN profiles p ON p.id = fc.faculty_id
JOIN courses c ON c.id = fc.course_id
WHERE fc.faculty_id = $1 AND fc.status = 'ACTIVE' ORDER BY c.code`
	var rows []models.FacultyCourseDetail
	if err := r.db.SelectContext(ctx, &rows, query, facultyID); err != nil {
		return nil, fmt.Errorf("list faculty courses: %w", err)
	}
	return rows, nil
}

// ListCourseFaculty returns the faculty actively assigned to a course.
func (r *EnrollmentRepository) ListCourseFaculty(ctx context.Context, courseID string) ([]models.FacultyCourseDetail, error) {
	const query = `SELECT ` + facultyCourseDetail + ` FROM faculty_courses fc
JOIN profiles p ON p.id = fc.faculty_id
JOIN courses c ON c.id = fc.course_id
WHERE fc.course_id = $1 AND fc.status = 'ACTIVE' ORDER BY p.full_name`
	var rows []models.FacultyCourseDetail
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list course faculty: %w", err)
	}
	return rows, nil
}
