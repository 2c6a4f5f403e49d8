package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const facultyDetailColumns = `f.profile_id, f.staff_number, f.department, f.created_at, p.full_name, p.email, p.status`

// FacultyRepository reads and writes faculty extension rows.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// FindByID returns a faculty member joined with the profile.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	const query = `SELECT ` + facultyDetailColumns + ` FROM faculty f JOIN profiles p ON p.id = f.profile_id WHERE f.profile_id = $1`
	var faculty models.FacultyDetail
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty: %w", err)
	}
	return &faculty, nil
}

// List returns faculty matching filter.
func (r *FacultyRepository) List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, int, error) {
	base := psql.Select().From("faculty f").Join("profiles p ON p.id = f.profile_id")
	if filter.Department != "" {
		base = base.Where(squirrel.Eq{"f.department": filter.Department})
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		base = base.Where(squirrel.Or{
			squirrel.Like{"LOWER(p.full_name)": pattern},
			squirrel.Like{"LOWER(f.staff_number)": pattern},
		})
	}
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"full_name":    "p.full_name",
		"staff_number": "f.staff_number",
		"department":   "f.department",
	}, "full_name")

	var faculty []models.FacultyDetail
	total, err := selectPage(ctx, r.db, &faculty, base, []string{facultyDetailColumns}, order, filter.Page, filter.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list faculty: %w", err)
	}
	return faculty, total, nil
}

// Update changes the staff number and department.
func (r *FacultyRepository) Update(ctx context.Context, faculty *models.Faculty) error {
	const query = `UPDATE faculty SET staff_number = :staff_number, department = :department WHERE profile_id = :profile_id`
	res, err := r.db.NamedExecContext(ctx, query, faculty)
	if err != nil {
		return classify("update faculty", err)
	}
	return expectRow(res, "update faculty")
}
