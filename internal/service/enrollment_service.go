package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type enrollmentRepository interface {
	FindStudentCourse(ctx context.Context, studentID, courseID string) (*models.StudentCourse, error)
	Enroll(ctx context.Context, studentID, courseID string) (*models.StudentCourse, error)
	Drop(ctx context.Context, studentID, courseID string) error
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.StudentCourseDetail, int, error)
	ActiveStudentIDs(ctx context.Context, courseID string) ([]string, error)
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	AssignFaculty(ctx context.Context, fc *models.FacultyCourse) error
	UnassignFaculty(ctx context.Context, facultyID, courseID string) error
	IsFacultyAssigned(ctx context.Context, facultyID, courseID string) (bool, error)
	ListFacultyCourses(ctx context.Context, facultyID string) ([]models.FacultyCourseDetail, error)
	ListCourseFaculty(ctx context.Context, courseID string) ([]models.FacultyCourseDetail, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type facultyLookup interface {
	FindByID(ctx context.Context, id string) (*models.FacultyDetail, error)
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollmentService links students and faculty to courses.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentLookup
	faculty   facultyLookup
	courses   courseLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentLookup, faculty facultyLookup, courses courseLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, faculty: faculty, courses: courses, cache: cache, validator: validate, logger: logger}
}

// Enroll adds a student to a course. A dropped enrollment is re-activated
// in place; an active one is a conflict.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollRequest) (*models.StudentCourse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid enrollment payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, repoError(err, "student", "failed to load student")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, repoError(err, "course", "failed to load course")
	}

	existing, err := s.repo.FindStudentCourse(ctx, req.StudentID, req.CourseID)
	switch {
	case err == nil && existing.Status == models.StudentCourseEnrolled:
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
	case err != nil && !isNotFound(err):
		return nil, appErrors.Internal(err, "failed to check enrollment")
	}

	sc, err := s.repo.Enroll(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, repoError(err, "enrollment", "failed to enroll student")
	}
	s.cache.InvalidateDashboards(ctx)
	return sc, nil
}

// Drop flips an active enrollment to DROPPED.
func (s *EnrollmentService) Drop(ctx context.Context, studentID, courseID string) error {
	if err := s.repo.Drop(ctx, studentID, courseID); err != nil {
		return repoError(err, "active enrollment", "failed to drop enrollment")
	}
	s.cache.InvalidateDashboards(ctx)
	return nil
}

// List returns enrollments matching filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.StudentCourseDetail, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return rows, pagination(filter.Page, filter.PageSize, total), nil
}

// Roster lists the students actively enrolled in a course.
func (s *EnrollmentService) Roster(ctx context.Context, courseID string, page, size int) ([]models.StudentCourseDetail, *models.Pagination, error) {
	return s.List(ctx, models.EnrollmentFilter{CourseID: courseID, Status: models.StudentCourseEnrolled, Page: page, PageSize: size, SortBy: "student_name", SortOrder: "asc"})
}

// StudentCourses lists a student's active courses.
func (s *EnrollmentService) StudentCourses(ctx context.Context, studentID string) ([]models.StudentCourseDetail, error) {
	rows, _, err := s.repo.List(ctx, models.EnrollmentFilter{StudentID: studentID, Status: models.StudentCourseEnrolled, PageSize: 100, SortBy: "course_code", SortOrder: "asc"})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list student courses")
	}
	return rows, nil
}

// AssignFaculty makes a faculty member active on a course.
func (s *EnrollmentService) AssignFaculty(ctx context.Context, req dto.AssignFacultyRequest) (*models.FacultyCourse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid assignment payload")
	}
	if _, err := s.faculty.FindByID(ctx, req.FacultyID); err != nil {
		return nil, repoError(err, "faculty", "failed to load faculty")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, repoError(err, "course", "failed to load course")
	}
	assigned, err := s.repo.IsFacultyAssigned(ctx, req.FacultyID, req.CourseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check faculty assignment")
	}
	if assigned {
		return nil, appErrors.Clone(appErrors.ErrConflict, "faculty is already assigned to this course")
	}
	fc := &models.FacultyCourse{FacultyID: req.FacultyID, CourseID: req.CourseID, Status: models.FacultyCourseActive}
	if err := s.repo.AssignFaculty(ctx, fc); err != nil {
		return nil, repoError(err, "faculty assignment", "failed to assign faculty")
	}
	s.cache.InvalidateDashboards(ctx)
	return fc, nil
}

// UnassignFaculty removes a faculty member from a course.
func (s *EnrollmentService) UnassignFaculty(ctx context.Context, facultyID, courseID string) error {
	if err := s.repo.UnassignFaculty(ctx, facultyID, courseID); err != nil {
		return repoError(err, "faculty assignment", "failed to unassign faculty")
	}
	s.cache.InvalidateDashboards(ctx)
	return nil
}

// FacultyCourses lists a faculty member's active courses.
func (s *EnrollmentService) FacultyCourses(ctx context.Context, facultyID string) ([]models.FacultyCourseDetail, error) {
	rows, err := s.repo.ListFacultyCourses(ctx, facultyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list faculty courses")
	}
	return rows, nil
}

// CourseFaculty lists the faculty teaching a course.
func (s *EnrollmentService) CourseFaculty(ctx context.Context, courseID string) ([]models.FacultyCourseDetail, error) {
	rows, err := s.repo.ListCourseFaculty(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list course faculty")
	}
	return rows, nil
}
