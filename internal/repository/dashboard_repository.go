package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// DashboardRepository answers cross-table counting queries.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// AdminCounts returns headline totals in one round trip.
func (r *DashboardRepository) AdminCounts(ctx context.Context) (*models.AdminCounts, error) {
	const query = `SELECT
  (SELECT COUNT(*) FROM profiles WHERE role = 'STUDENT') AS students,
  (SELECT COUNT(*) FROM profiles WHERE role = 'FACULTY') AS faculty,
  (SELECT COUNT(*) FROM profiles WHERE role = 'GUARDIAN') AS guardians,
  (SELECT COUNT(*) FROM courses) AS courses,
  (SELECT COUNT(*) FROM student_courses WHERE status = 'ENROLLED') AS active_enrollments,
  (SELECT COUNT(*) FROM student_reports) AS reports`
	var counts models.AdminCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("admin counts: %w", err)
	}
	return &counts, nil
}
