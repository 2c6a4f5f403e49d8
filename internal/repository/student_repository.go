package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const studentDetailColumns = `s.profile_id, s.student_number, s.class_year, s.created_at, p.full_name, p.email, p.status`

// StudentRepository reads and writes student extension rows and guardian links.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student joined with its profile.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT ` + studentDetailColumns + ` FROM students s JOIN profiles p ON p.id = s.profile_id WHERE s.profile_id = $1`
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// List returns students matching filter.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := psql.Select().From("students s").Join("profiles p ON p.id = s.profile_id")
	if filter.ClassYear != "" {
		base = base.Where(squirrel.Eq{"s.class_year": filter.ClassYear})
	}
	if filter.GuardianID != "" {
		base = base.Where("EXISTS (SELECT 1 FROM guardian_students gs WHERE gs.student_id = s.profile_id AND gs.guardian_id = ?)", filter.GuardianID)
	}
	if filter.CourseID != "" {
		base = base.Where("EXISTS (SELECT 1 FROM student_courses sc WHERE sc.student_id = s.profile_id AND sc.course_id = ? AND sc.status = 'ENROLLED')", filter.CourseID)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		base = base.Where(squirrel.Or{
			squirrel.Like{"LOWER(p.full_name)": pattern},
			squirrel.Like{"LOWER(s.student_number)": pattern},
		})
	}
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"full_name":      "p.full_name",
		"student_number": "s.student_number",
		"class_year":     "s.class_year",
		"created_at":     "s.created_at",
	}, "full_name")

	var students []models.StudentDetail
	total, err := selectPage(ctx, r.db, &students, base, []string{studentDetailColumns}, order, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	return students, total, nil
}

// Update changes the student number and class year.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET student_number = :student_number, class_year = :class_year WHERE profile_id = :profile_id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return classify("update student", err)
	}
	return expectRow(res, "update student")
}

// LinkGuardian attaches a guardian to a student; relinking updates the relationship.
func (r *StudentRepository) LinkGuardian(ctx context.Context, link *models.GuardianLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO guardian_students (guardian_id, student_id, relationship, created_at) VALUES (:guardian_id, :student_id, :relationship, :created_at)
ON CONFLICT (guardian_id, student_id) DO UPDATE SET relationship = EXCLUDED.relationship`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return classify("link guardian", err)
	}
	return nil
}

// UnlinkGuardian removes a guardian link.
func (r *StudentRepository) UnlinkGuardian(ctx context.Context, guardianID, studentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM guardian_students WHERE guardian_id = $1 AND student_id = $2`, guardianID, studentID)
	if err != nil {
		return fmt.Errorf("unlink guardian: %w", err)
	}
	return expectRow(res, "unlink guardian")
}

// ListByGuardian returns the guardian's children.
func (r *StudentRepository) ListByGuardian(ctx context.Context, guardianID string) ([]models.StudentDetail, error) {
	const query = `SELECT ` + studentDetailColumns + ` FROM guardian_students gs
JOIN students s ON s.profile_id = gs.student_id
JOIN profiles p ON p.id = s.profile_id
WHERE gs.guardian_id = $1 ORDER BY p.full_name`
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, guardianID); err != nil {
		return nil, fmt.Errorf("list guardian students: %w", err)
	}
	return students, nil
}

// IsGuardianOf reports whether guardianID is linked to studentID.
func (r *StudentRepository) IsGuardianOf(ctx context.Context, guardianID, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM guardian_students WHERE guardian_id = $1 AND student_id = $2)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, guardianID, studentID); err != nil {
		return false, fmt.Errorf("check guardian link: %w", err)
	}
	return ok, nil
}
