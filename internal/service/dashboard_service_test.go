package service

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type stubDashboardSources struct {
	reports     map[string]*models.Report
	courses     []models.FacultyCourseDetail
	awaiting    []models.SubmissionDetail
	counts      models.AdminCounts
	countsErr   error
	countCalls  int32
	reportCalls int32
}

func (s *stubDashboardSources) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	return []models.AssignmentDetail{{Assignment: models.Assignment{ID: "m3", Title: "Quiz"}}}, 1, nil
}

func (s *stubDashboardSources) AwaitingGrading(ctx context.Context, facultyID string, limit int) ([]models.SubmissionDetail, error) {
	return s.awaiting, nil
}

func (s *stubDashboardSources) LatestForStudent(ctx context.Context, studentID string) (*models.Report, error) {
	atomic.AddInt32(&s.reportCalls, 1)
	if r, ok := s.reports[studentID]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubDashboardSources) ListFacultyCourses(ctx context.Context, facultyID string) ([]models.FacultyCourseDetail, error) {
	return s.courses, nil
}

func (s *stubDashboardSources) AdminCounts(ctx context.Context) (*models.AdminCounts, error) {
	atomic.AddInt32(&s.countCalls, 1)
	if s.countsErr != nil {
		return nil, s.countsErr
	}
	c := s.counts
	return &c, nil
}

func newDashboardFixture(t *testing.T) (*DashboardService, *stubDashboardSources, *memoryCache) {
	t.Helper()
	progress, _ := progressFixture()
	profiles := newMockProfileRepo(
		&models.Profile{ID: "stu-1", Email: "ama@school.test", FullName: "Ama", Role: models.RoleStudent},
		&models.Profile{ID: "fac-1", Email: "teacher@school.test", FullName: "Mr Mensah", Role: models.RoleFaculty},
		&models.Profile{ID: "guard-1", Email: "parent@school.test", FullName: "Mrs Owusu", Role: models.RoleGuardian},
	)
	sources := &stubDashboardSources{
		reports: map[string]*models.Report{"stu-1": {ID: "rep-1", StudentID: "stu-1", Term: "First", OverallGrade: "B3"}},
		counts:  models.AdminCounts{Students: 2, Faculty: 1, Courses: 3},
	}
	children := &mockGuardians{children: map[string][]models.StudentDetail{
		"guard-1": {{Student: models.Student{ProfileID: "stu-1"}, FullName: "Ama"}, {Student: models.Student{ProfileID: "stu-2"}, FullName: "Kofi"}},
	}}
	inbox := &mockNotificationRepo{unread: map[string]int{"stu-1": 2, "guard-1": 1}}
	cache := newMemoryCache()

	svc := NewDashboardService(DashboardServiceParams{
		Profiles:      profiles,
		Progress:      progress,
		Assignments:   sources,
		Submissions:   sources,
		Reports:       sources,
		Courses:       sources,
		Children:      children,
		Notifications: inbox,
		Counts:        sources,
		Cache:         NewCacheService(cache, nil, 0, nil, true),
	})
	return svc, sources, cache
}

func TestStudentDashboardIsCachedUntilInvalidated(t *testing.T) {
	svc, sources, cache := newDashboardFixture(t)
	ctx := context.Background()

	dash, cached, err := svc.Student(ctx, "stu-1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "Ama", dash.Profile.FullName)
	assert.Equal(t, 2, dash.UnreadNotifications)
	assert.Len(t, dash.UpcomingAssignments, 1)
	require.NotNil(t, dash.LatestReport)
	assert.Equal(t, "B3", dash.LatestReport.OverallGrade)
	assert.Equal(t, 78.18, dash.Progress.OverallAverage.Value)

	again, cached, err := svc.Student(ctx, "stu-1")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, dash.Progress.OverallAverage.Value, again.Progress.OverallAverage.Value)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sources.reportCalls))
	assert.Equal(t, []string{"dashboard:student:stu-1"}, cache.keys())

	NewCacheService(cache, nil, 0, nil, true).InvalidateDashboards(ctx)
	_, cached, err = svc.Student(ctx, "stu-1")
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestGuardianDashboardSummarisesEachChild(t *testing.T) {
	svc, _, _ := newDashboardFixture(t)

	dash, _, err := svc.Guardian(context.Background(), "guard-1")
	require.NoError(t, err)
	assert.Equal(t, 1, dash.UnreadNotifications)
	require.Len(t, dash.Children, 2)
	assert.Equal(t, "Ama", dash.Children[0].Student.FullName)
	require.NotNil(t, dash.Children[0].LatestReport)
	assert.Nil(t, dash.Children[1].LatestReport)
	require.True(t, dash.Children[1].Progress.OverallAverage.Valid)
	assert.Equal(t, 100.0, dash.Children[1].Progress.OverallAverage.Value)
}

func TestFacultyDashboardDefaultsEmptyLists(t *testing.T) {
	svc, _, _ := newDashboardFixture(t)

	dash, _, err := svc.Faculty(context.Background(), "fac-1")
	require.NoError(t, err)
	assert.Equal(t, "Mr Mensah", dash.Profile.FullName)
	assert.NotNil(t, dash.Courses)
	assert.NotNil(t, dash.AwaitingGrading)
}

func TestAdminDashboardFailureIsNotCached(t *testing.T) {
	svc, sources, cache := newDashboardFixture(t)
	sources.countsErr = errors.New("db down")

	_, _, err := svc.Admin(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, cache.keys())

	sources.countsErr = nil
	dash, cached, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, dash.Counts.Students)
	assert.Len(t, dash.RecentProfiles, 3)
}

func TestDashboardMissingProfileIsNotFound(t *testing.T) {
	svc, _, _ := newDashboardFixture(t)
	_, _, err := svc.Student(context.Background(), "nobody")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
