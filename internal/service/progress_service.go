package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/grading"
)

const rosterPageSize = 100

type scoreSource interface {
	ScoreRows(ctx context.Context, studentIDs []string, courseID string) ([]models.ScoreRow, error)
}

type enrollmentLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.StudentCourseDetail, int, error)
	IsFacultyAssigned(ctx context.Context, facultyID, courseID string) (bool, error)
}

type courseAssignments interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error)
}

// ProgressService computes course progress and gradebooks from submissions.
// Course averages use grading.PointsAverage; the overall average uses
// grading.MeanOfPercentages so every course weighs the same.
type ProgressService struct {
	scores      scoreSource
	enrollments enrollmentLister
	courses     courseLookup
	assignments courseAssignments
	access      studentAccess
	policy      grading.Policy
	logger      *zap.Logger
}

// NewProgressService constructs a ProgressService.
func NewProgressService(scores scoreSource, enrollments enrollmentLister, courses courseLookup, assignments courseAssignments, guardians guardianChecker, policy grading.Policy, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		scores:      scores,
		enrollments: enrollments,
		courses:     courses,
		assignments: assignments,
		access:      studentAccess{guardians: guardians},
		policy:      policy,
		logger:      logger,
	}
}

// StudentProgress returns per-course progress and the overall average for a student.
func (s *ProgressService) StudentProgress(ctx context.Context, actor models.Actor, studentID string) (*models.StudentProgress, error) {
	if err := s.access.check(ctx, actor, studentID); err != nil {
		return nil, err
	}
	return s.progress(ctx, studentID)
}

func (s *ProgressService) progress(ctx context.Context, studentID string) (*models.StudentProgress, error) {
	courses, err := s.allEnrollments(ctx, models.EnrollmentFilter{StudentID: studentID, Status: models.StudentCourseEnrolled})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load student courses")
	}
	rows, err := s.scores.ScoreRows(ctx, []string{studentID}, "")
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load scores")
	}
	return buildProgress(s.policy, studentID, courses, rows), nil
}

// Gradebook returns every enrolled student's scores and points average for a course.
func (s *ProgressService) Gradebook(ctx context.Context, actor models.Actor, courseID string) (*models.Gradebook, error) {
	if err := requireCourseStaff(ctx, s.enrollments, actor, courseID); err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, repoError(err, "course", "failed to load course")
	}
	assignments, err := s.assignments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load assignments")
	}
	roster, err := s.allEnrollments(ctx, models.EnrollmentFilter{CourseID: courseID, Status: models.StudentCourseEnrolled})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load roster")
	}
	rows, err := s.scores.ScoreRows(ctx, nil, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load scores")
	}

	byStudent := make(map[string][]models.ScoreRow, len(roster))
	for _, r := range rows {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}
	book := &models.Gradebook{Course: *course, Assignments: assignments, Rows: make([]models.GradebookRow, 0, len(roster))}
	for _, enrolled := range roster {
		studentRows := byStudent[enrolled.StudentID]
		row := models.GradebookRow{
			StudentID:   enrolled.StudentID,
			StudentName: enrolled.StudentName,
			Scores:      make(map[string]*float64, len(assignments)),
		}
		for _, a := range assignments {
			row.Scores[a.ID] = nil
		}
		for _, r := range studentRows {
			if graded(r) {
				row.Scores[r.AssignmentID] = r.Score
			}
		}
		row.Average = grading.PointsAverage(entries(studentRows))
		if row.Average.Valid {
			row.Letter = s.policy.CourseLetter(row.Average.Value)
		}
		book.Rows = append(book.Rows, row)
	}
	return book, nil
}

func (s *ProgressService) allEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.StudentCourseDetail, error) {
	filter.PageSize = rosterPageSize
	var all []models.StudentCourseDetail
	for page := 1; ; page++ {
		filter.Page = page
		rows, total, err := s.enrollments.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

// buildProgress folds score rows into per-course progress. Courses without
// assignments still appear with an N/A average.
func buildProgress(policy grading.Policy, studentID string, courses []models.StudentCourseDetail, rows []models.ScoreRow) *models.StudentProgress {
	byCourse := make(map[string][]models.ScoreRow, len(courses))
	for _, r := range rows {
		if r.StudentID == studentID {
			byCourse[r.CourseID] = append(byCourse[r.CourseID], r)
		}
	}

	out := &models.StudentProgress{StudentID: studentID, Courses: make([]models.CourseProgress, 0, len(courses))}
	overall := make([]grading.Entry, 0, len(courses))
	for _, c := range courses {
		courseRows := byCourse[c.CourseID]
		cp := models.CourseProgress{
			CourseID:         c.CourseID,
			CourseCode:       c.CourseCode,
			CourseName:       c.CourseName,
			TotalAssignments: len(courseRows),
		}
		for _, r := range courseRows {
			if r.Status == nil {
				continue
			}
			switch *r.Status {
			case models.SubmissionGraded:
				cp.Graded++
				cp.Completed++
			case models.SubmissionSubmitted:
				cp.Completed++
			case models.SubmissionPending:
				if r.SubmittedAt != nil {
					cp.Completed++
				}
			}
		}
		cp.CompletionRate = grading.Percentage(cp.Completed, cp.TotalAssignments)
		cp.Average = grading.PointsAverage(entries(courseRows))
		if cp.Average.Valid {
			cp.Letter = policy.CourseLetter(cp.Average.Value)
		}
		overall = append(overall, grading.Entry{Earned: cp.Average.Value, Possible: 100, Graded: cp.Average.Valid})
		out.Courses = append(out.Courses, cp)
	}
	out.OverallAverage = grading.MeanOfPercentages(overall)
	if out.OverallAverage.Valid {
		out.OverallLetter = policy.CourseLetter(out.OverallAverage.Value)
	}
	return out
}

func graded(r models.ScoreRow) bool {
	return r.Status != nil && *r.Status == models.SubmissionGraded && r.Score != nil
}

func entries(rows []models.ScoreRow) []grading.Entry {
	out := make([]grading.Entry, 0, len(rows))
	for _, r := range rows {
		e := grading.Entry{Possible: r.MaxScore, Graded: graded(r)}
		if e.Graded {
			e.Earned = *r.Score
		}
		out = append(out, e)
	}
	return out
}
