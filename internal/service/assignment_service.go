package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Assignment, error)
	Create(ctx context.Context, a *models.Assignment) error
	Update(ctx context.Context, a *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type courseMembership interface {
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	IsFacultyAssigned(ctx context.Context, facultyID, courseID string) (bool, error)
	ActiveStudentIDs(ctx context.Context, courseID string) ([]string, error)
}

type submissionMaterializer interface {
	MaterializeMissing(ctx context.Context, assignmentID string) (int64, error)
}

// AssignmentService manages course assignments.
type AssignmentService struct {
	repo        assignmentRepository
	membership  courseMembership
	submissions submissionMaterializer
	notifier    *NotificationService
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(repo assignmentRepository, membership courseMembership, submissions submissionMaterializer, notifier *NotificationService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, membership: membership, submissions: submissions, notifier: notifier, cache: cache, validator: validate, logger: logger}
}

// Create adds an assignment to a course the actor teaches, then creates a
// not_submitted row for every enrolled student.
func (s *AssignmentService) Create(ctx context.Context, actor models.Actor, req dto.AssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid assignment payload")
	}
	if err := requireCourseStaff(ctx, s.membership, actor, req.CourseID); err != nil {
		return nil, err
	}
	a := &models.Assignment{
		CourseID:    req.CourseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
		MaxScore:    req.MaxScore,
		CreatedBy:   actor.ProfileID,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, repoError(err, "course", "failed to create assignment")
	}

	if n, err := s.submissions.MaterializeMissing(ctx, a.ID); err != nil {
		s.logger.Warn("failed to create placeholder submissions", zap.String("assignment_id", a.ID), zap.Error(err))
	} else {
		s.logger.Debug("placeholder submissions created", zap.String("assignment_id", a.ID), zap.Int64("count", n))
	}
	if students, err := s.membership.ActiveStudentIDs(ctx, a.CourseID); err == nil {
		sender := actor.ProfileID
		s.notifier.Notify(ctx, &sender, students, "New assignment: "+a.Title, "Due "+a.DueDate.Format("2006-01-02 15:04 MST"))
	}
	s.cache.InvalidateDashboards(ctx)
	return a, nil
}

// Get returns an assignment the actor may see.
func (s *AssignmentService) Get(ctx context.Context, actor models.Actor, id string) (*models.AssignmentDetail, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "assignment", "failed to load assignment")
	}
	if actor.Role == models.RoleStudent {
		ok, err := s.membership.IsEnrolled(ctx, actor.ProfileID, a.CourseID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check enrollment")
		}
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
		}
	}
	return a, nil
}

// List returns assignments; students are limited to their enrolled courses.
func (s *AssignmentService) List(ctx context.Context, actor models.Actor, filter models.AssignmentFilter) ([]models.AssignmentDetail, *models.Pagination, error) {
	if actor.Role == models.RoleStudent {
		filter.StudentID = actor.ProfileID
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list assignments")
	}
	return rows, pagination(filter.Page, filter.PageSize, total), nil
}

// Update edits an assignment. Assignments cannot move between courses.
func (s *AssignmentService) Update(ctx context.Context, actor models.Actor, id string, req dto.AssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid assignment payload")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "assignment", "failed to load assignment")
	}
	if req.CourseID != current.CourseID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment course cannot be changed")
	}
	if err := requireCourseStaff(ctx, s.membership, actor, current.CourseID); err != nil {
		return nil, err
	}
	a := current.Assignment
	a.Title = strings.TrimSpace(req.Title)
	a.Description = req.Description
	a.DueDate = req.DueDate.UTC()
	a.MaxScore = req.MaxScore
	if err := s.repo.Update(ctx, &a); err != nil {
		return nil, repoError(err, "assignment", "failed to update assignment")
	}
	s.cache.InvalidateDashboards(ctx)
	return &a, nil
}

// Delete removes an assignment and its submissions.
func (s *AssignmentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return repoError(err, "assignment", "failed to load assignment")
	}
	if err := requireCourseStaff(ctx, s.membership, actor, current.CourseID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return repoError(err, "assignment", "failed to delete assignment")
	}
	s.cache.InvalidateDashboards(ctx)
	return nil
}
