package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	mockMembership
	links    map[string]*models.StudentCourse
	faculty  []models.FacultyCourse
	enrolls  int
	lastList models.EnrollmentFilter
}

func (m *mockEnrollmentRepo) FindStudentCourse(ctx context.Context, studentID, courseID string) (*models.StudentCourse, error) {
	if sc, ok := m.links[studentID+"|"+courseID]; ok {
		return sc, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Enroll(ctx context.Context, studentID, courseID string) (*models.StudentCourse, error) {
	m.enrolls++
	sc := &models.StudentCourse{ID: "sc-new", StudentID: studentID, CourseID: courseID, Status: models.StudentCourseEnrolled}
	m.links[studentID+"|"+courseID] = sc
	return sc, nil
}

func (m *mockEnrollmentRepo) Drop(ctx context.Context, studentID, courseID string) error {
	sc, ok := m.links[studentID+"|"+courseID]
	if !ok || sc.Status != models.StudentCourseEnrolled {
		return sql.ErrNoRows
	}
	sc.Status = models.StudentCourseDropped
	return nil
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.StudentCourseDetail, int, error) {
	m.lastList = filter
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) AssignFaculty(ctx context.Context, fc *models.FacultyCourse) error {
	m.faculty = append(m.faculty, *fc)
	return nil
}

func (m *mockEnrollmentRepo) UnassignFaculty(ctx context.Context, facultyID, courseID string) error {
	if !m.assigned[facultyID+"|"+courseID] {
		return sql.ErrNoRows
	}
	delete(m.assigned, facultyID+"|"+courseID)
	return nil
}

func (m *mockEnrollmentRepo) ListFacultyCourses(ctx context.Context, facultyID string) ([]models.FacultyCourseDetail, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) ListCourseFaculty(ctx context.Context, courseID string) ([]models.FacultyCourseDetail, error) {
	return nil, nil
}

type stubFacultyLookup struct{ ids map[string]bool }

func (s stubFacultyLookup) FindByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	if s.ids[id] {
		return &models.FacultyDetail{}, nil
	}
	return nil, sql.ErrNoRows
}

func newEnrollmentFixture() (*EnrollmentService, *mockEnrollmentRepo) {
	repo := &mockEnrollmentRepo{
		mockMembership: mockMembership{assigned: map[string]bool{"fac-1|course-1": true}},
		links: map[string]*models.StudentCourse{
			"stu-1|course-1": {ID: "sc-1", StudentID: "stu-1", CourseID: "course-1", Status: models.StudentCourseEnrolled},
			"stu-2|course-1": {ID: "sc-2", StudentID: "stu-2", CourseID: "course-1", Status: models.StudentCourseDropped},
		},
	}
	students := &mockStudentRepo{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ProfileID: "stu-1"}},
		"stu-2": {Student: models.Student{ProfileID: "stu-2"}},
	}}
	courses := &mockCourses{courses: map[string]*models.Course{"course-1": {ID: "course-1", Code: "MTH101"}}}
	faculty := stubFacultyLookup{ids: map[string]bool{"fac-1": true, "fac-2": true}}
	return NewEnrollmentService(repo, students, faculty, courses, nil, nil, nil), repo
}

func TestEnrollActiveStudentConflicts(t *testing.T) {
	svc, repo := newEnrollmentFixture()
	_, err := svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "stu-1", CourseID: "course-1"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Zero(t, repo.enrolls)
}

func TestEnrollReactivatesDroppedStudent(t *testing.T) {
	svc, repo := newEnrollmentFixture()
	sc, err := svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "stu-2", CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, models.StudentCourseEnrolled, sc.Status)
	assert.Equal(t, 1, repo.enrolls)
}

func TestEnrollUnknownStudentOrCourse(t *testing.T) {
	svc, _ := newEnrollmentFixture()
	_, err := svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "stu-9", CourseID: "course-1"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Enroll(context.Background(), dto.EnrollRequest{StudentID: "stu-1", CourseID: "course-9"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDropRequiresActiveEnrollment(t *testing.T) {
	svc, _ := newEnrollmentFixture()
	assert.NoError(t, svc.Drop(context.Background(), "stu-1", "course-1"))
	assert.True(t, errors.Is(svc.Drop(context.Background(), "stu-1", "course-1"), appErrors.ErrNotFound))
}

func TestAssignFaculty(t *testing.T) {
	svc, repo := newEnrollmentFixture()
	_, err := svc.AssignFaculty(context.Background(), dto.AssignFacultyRequest{FacultyID: "fac-1", CourseID: "course-1"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	fc, err := svc.AssignFaculty(context.Background(), dto.AssignFacultyRequest{FacultyID: "fac-2", CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, models.FacultyCourseActive, fc.Status)
	assert.Len(t, repo.faculty, 1)

	assert.True(t, errors.Is(svc.UnassignFaculty(context.Background(), "fac-3", "course-1"), appErrors.ErrNotFound))
}

func TestRosterFiltersActiveEnrollments(t *testing.T) {
	svc, repo := newEnrollmentFixture()
	_, page, err := svc.Roster(context.Background(), "course-1", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, "course-1", repo.lastList.CourseID)
	assert.Equal(t, models.StudentCourseEnrolled, repo.lastList.Status)
}
