package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type dashboardProfiles interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error)
}

type dashboardAssignments interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
}

type dashboardSubmissions interface {
	AwaitingGrading(ctx context.Context, facultyID string, limit int) ([]models.SubmissionDetail, error)
}

type dashboardReports interface {
	LatestForStudent(ctx context.Context, studentID string) (*models.Report, error)
}

type dashboardCourses interface {
	ListFacultyCourses(ctx context.Context, facultyID string) ([]models.FacultyCourseDetail, error)
}

type dashboardChildren interface {
	ListByGuardian(ctx context.Context, guardianID string) ([]models.StudentDetail, error)
}

type dashboardInbox interface {
	UnreadCount(ctx context.Context, recipientID string) (int, error)
}

type dashboardCounts interface {
	AdminCounts(ctx context.Context) (*models.AdminCounts, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL       time.Duration
	UpcomingLimit  int
	AwaitingLimit  int
	RecentProfiles int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Profiles      dashboardProfiles
	Progress      *ProgressService
	Assignments   dashboardAssignments
	Submissions   dashboardSubmissions
	Reports       dashboardReports
	Courses       dashboardCourses
	Children      dashboardChildren
	Notifications dashboardInbox
	Counts        dashboardCounts
	Cache         *CacheService
	Logger        *zap.Logger
	Config        DashboardServiceConfig
}

// DashboardService assembles the per-role landing views. Independent reads
// run concurrently; the first failure cancels the rest.
type DashboardService struct {
	profiles      dashboardProfiles
	progress      *ProgressService
	assignments   dashboardAssignments
	submissions   dashboardSubmissions
	reports       dashboardReports
	courses       dashboardCourses
	children      dashboardChildren
	notifications dashboardInbox
	counts        dashboardCounts
	cache         *CacheService
	logger        *zap.Logger
	now           func() time.Time
	cfg           DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.UpcomingLimit <= 0 {
		cfg.UpcomingLimit = 5
	}
	if cfg.AwaitingLimit <= 0 {
		cfg.AwaitingLimit = 10
	}
	if cfg.RecentProfiles <= 0 {
		cfg.RecentProfiles = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		profiles:      params.Profiles,
		progress:      params.Progress,
		assignments:   params.Assignments,
		submissions:   params.Submissions,
		reports:       params.Reports,
		courses:       params.Courses,
		children:      params.Children,
		notifications: params.Notifications,
		counts:        params.Counts,
		cache:         params.Cache,
		logger:        logger,
		now:           time.Now,
		cfg:           cfg,
	}
}

// Student returns the student dashboard and whether it came from cache.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*models.StudentDashboard, bool, error) {
	key := dashboardKey("student", studentID)
	var cached models.StudentDashboard
	if s.tryCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	now := s.now().UTC()
	dash := &models.StudentDashboard{GeneratedAt: now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := s.profileInfo(gctx, studentID)
		if err != nil {
			return err
		}
		dash.Profile = info
		return nil
	})
	g.Go(func() error {
		progress, err := s.progress.progress(gctx, studentID)
		if err != nil {
			return err
		}
		dash.Progress = *progress
		return nil
	})
	g.Go(func() error {
		upcoming, _, err := s.assignments.List(gctx, models.AssignmentFilter{
			StudentID: studentID,
			DueAfter:  &now,
			PageSize:  s.cfg.UpcomingLimit,
			SortBy:    "due_date",
			SortOrder: "asc",
		})
		if err != nil {
			return appErrors.Internal(err, "failed to load upcoming assignments")
		}
		dash.UpcomingAssignments = upcoming
		return nil
	})
	g.Go(func() error {
		latest, err := s.latestReport(gctx, studentID)
		if err != nil {
			return err
		}
		dash.LatestReport = latest
		return nil
	})
	g.Go(func() error {
		n, err := s.unread(gctx, studentID)
		dash.UnreadNotifications = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if dash.UpcomingAssignments == nil {
		dash.UpcomingAssignments = []models.AssignmentDetail{}
	}
	s.persistCache(ctx, key, dash)
	return dash, false, nil
}

// Faculty returns the faculty dashboard and whether it came from cache.
func (s *DashboardService) Faculty(ctx context.Context, facultyID string) (*models.FacultyDashboard, bool, error) {
	key := dashboardKey("faculty", facultyID)
	var cached models.FacultyDashboard
	if s.tryCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	dash := &models.FacultyDashboard{GeneratedAt: s.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := s.profileInfo(gctx, facultyID)
		if err != nil {
			return err
		}
		dash.Profile = info
		return nil
	})
	g.Go(func() error {
		courses, err := s.courses.ListFacultyCourses(gctx, facultyID)
		if err != nil {
			return appErrors.Internal(err, "failed to load courses")
		}
		dash.Courses = courses
		return nil
	})
	g.Go(func() error {
		awaiting, err := s.submissions.AwaitingGrading(gctx, facultyID, s.cfg.AwaitingLimit)
		if err != nil {
			return appErrors.Internal(err, "failed to load submissions awaiting grading")
		}
		dash.AwaitingGrading = awaiting
		return nil
	})
	g.Go(func() error {
		n, err := s.unread(gctx, facultyID)
		dash.UnreadNotifications = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if dash.Courses == nil {
		dash.Courses = []models.FacultyCourseDetail{}
	}
	if dash.AwaitingGrading == nil {
		dash.AwaitingGrading = []models.SubmissionDetail{}
	}
	s.persistCache(ctx, key, dash)
	return dash, false, nil
}

// Guardian returns the guardian dashboard with a summary per linked child.
func (s *DashboardService) Guardian(ctx context.Context, guardianID string) (*models.GuardianDashboard, bool, error) {
	key := dashboardKey("guardian", guardianID)
	var cached models.GuardianDashboard
	if s.tryCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	children, err := s.children.ListByGuardian(ctx, guardianID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load children")
	}
	dash := &models.GuardianDashboard{GeneratedAt: s.now().UTC(), Children: make([]models.ChildSummary, len(children))}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := s.profileInfo(gctx, guardianID)
		if err != nil {
			return err
		}
		dash.Profile = info
		return nil
	})
	g.Go(func() error {
		n, err := s.unread(gctx, guardianID)
		dash.UnreadNotifications = n
		return err
	})
	for i := range children {
		i := i
		dash.Children[i].Student = children[i]
		g.Go(func() error {
			progress, err := s.progress.progress(gctx, children[i].ProfileID)
			if err != nil {
				return err
			}
			dash.Children[i].Progress = *progress
			return nil
		})
		g.Go(func() error {
			latest, err := s.latestReport(gctx, children[i].ProfileID)
			if err != nil {
				return err
			}
			dash.Children[i].LatestReport = latest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, key, dash)
	return dash, false, nil
}

// Admin returns headline counts and the newest profiles.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminDashboard, bool, error) {
	var cached models.AdminDashboard
	if s.tryCache(ctx, adminDashboardKey, &cached) {
		return &cached, true, nil
	}

	dash := &models.AdminDashboard{GeneratedAt: s.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.counts.AdminCounts(gctx)
		if err != nil {
			return appErrors.Internal(err, "failed to load counts")
		}
		dash.Counts = *counts
		return nil
	})
	g.Go(func() error {
		recent, _, err := s.profiles.List(gctx, models.ProfileFilter{PageSize: s.cfg.RecentProfiles, SortBy: "created_at", SortOrder: "desc"})
		if err != nil {
			return appErrors.Internal(err, "failed to load recent profiles")
		}
		dash.RecentProfiles = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if dash.RecentProfiles == nil {
		dash.RecentProfiles = []models.Profile{}
	}
	s.persistCache(ctx, adminDashboardKey, dash)
	return dash, false, nil
}

func (s *DashboardService) profileInfo(ctx context.Context, id string) (models.ProfileInfo, error) {
	p, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		return models.ProfileInfo{}, repoError(err, "profile", "failed to load profile")
	}
	return profileInfo(p), nil
}

func (s *DashboardService) latestReport(ctx context.Context, studentID string) (*models.Report, error) {
	r, err := s.reports.LatestForStudent(ctx, studentID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load latest report")
	}
	return r, nil
}

func (s *DashboardService) unread(ctx context.Context, profileID string) (int, error) {
	n, err := s.notifications.UnreadCount(ctx, profileID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to count notifications")
	}
	return n, nil
}

// tryCache reports a hit; read errors are logged and treated as misses.
func (s *DashboardService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
