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
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type mockCourseRepo struct {
	courses   map[string]*models.Course
	deleteErr error
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	out := make([]models.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	for _, c := range m.courses {
		if c.Code == course.Code {
			return repository.ErrDuplicate
		}
	}
	course.ID = "course-new"
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	return nil
}

func newCourseFixture() (*CourseService, *mockCourseRepo, *memoryCache) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Code: "MTH101", Name: "Mathematics"},
	}}
	cache := newMemoryCache()
	return NewCourseService(repo, NewCacheService(cache, nil, 0, nil, true), nil, nil), repo, cache
}

func TestCreateCourseNormalizesCode(t *testing.T) {
	svc, _, cache := newCourseFixture()
	require.NoError(t, cache.Set(context.Background(), "dashboard:admin", 1, 0))

	course, err := svc.Create(context.Background(), dto.CourseRequest{Code: " eng201 ", Name: " English "})
	require.NoError(t, err)
	assert.Equal(t, "ENG201", course.Code)
	assert.Equal(t, "English", course.Name)
	assert.Empty(t, cache.keys())
}

func TestCreateCourseDuplicateCodeConflicts(t *testing.T) {
	svc, _, _ := newCourseFixture()
	_, err := svc.Create(context.Background(), dto.CourseRequest{Code: "mth101", Name: "Maths again"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestUpdateCourse(t *testing.T) {
	svc, repo, _ := newCourseFixture()
	course, err := svc.Update(context.Background(), "course-1", dto.CourseRequest{Code: "mth102", Name: "Further Maths"})
	require.NoError(t, err)
	assert.Equal(t, "MTH102", course.Code)
	assert.Equal(t, "Further Maths", repo.courses["course-1"].Name)

	_, err = svc.Update(context.Background(), "missing", dto.CourseRequest{Code: "X", Name: "Y"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDeleteGradedCourseConflicts(t *testing.T) {
	svc, repo, _ := newCourseFixture()
	repo.deleteErr = repository.ErrReference

	err := svc.Delete(context.Background(), "course-1")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	repo.deleteErr = nil
	assert.NoError(t, svc.Delete(context.Background(), "course-1"))
	assert.True(t, errors.Is(svc.Delete(context.Background(), "course-1"), appErrors.ErrNotFound))
}
