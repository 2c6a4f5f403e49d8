package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type submissionRepository interface {
	FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error)
	FindByKey(ctx context.Context, studentID, assignmentID string) (*models.Submission, error)
	SaveSubmission(ctx context.Context, s *models.Submission) error
	Grade(ctx context.Context, id string, score float64, feedback *string, gradedBy string, gradedAt time.Time) error
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, int, error)
	MaterializeMissing(ctx context.Context, assignmentID string) (int64, error)
}

type assignmentLookup interface {
	FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	IsFacultyAssigned(ctx context.Context, facultyID, courseID string) (bool, error)
}

// SubmissionService handles student work and grading.
type SubmissionService struct {
	repo        submissionRepository
	assignments assignmentLookup
	enrollments enrollmentChecker
	access      studentAccess
	notifier    *NotificationService
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(repo submissionRepository, assignments assignmentLookup, enrollments enrollmentChecker, guardians guardianChecker, notifier *NotificationService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		repo:        repo,
		assignments: assignments,
		enrollments: enrollments,
		access:      studentAccess{guardians: guardians},
		notifier:    notifier,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit records the student's work. Drafts stay pending; work handed in
// after the due date is kept pending and flagged late until faculty review it.
func (s *SubmissionService) Submit(ctx context.Context, actor models.Actor, assignmentID string, req dto.SubmitRequest) (*models.Submission, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students submit work")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid submission payload")
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, repoError(err, "assignment", "failed to load assignment")
	}
	enrolled, err := s.enrollments.IsEnrolled(ctx, actor.ProfileID, assignment.CourseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
	}

	current := models.SubmissionNotSubmitted
	sub, err := s.repo.FindByKey(ctx, actor.ProfileID, assignmentID)
	switch {
	case err == nil:
		current = sub.Status
	case isNotFound(err):
		sub = &models.Submission{StudentID: actor.ProfileID, AssignmentID: assignmentID}
	default:
		return nil, appErrors.Internal(err, "failed to load submission")
	}

	now := s.now().UTC()
	late := now.After(assignment.DueDate)
	next := models.SubmissionSubmitted
	if req.Draft || late {
		next = models.SubmissionPending
	}
	if !current.CanTransition(next) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("submission cannot move from %s to %s", current, next))
	}

	content := strings.TrimSpace(req.Content)
	sub.Status = next
	sub.Content = &content
	sub.Late = late && !req.Draft
	if req.Draft {
		sub.SubmittedAt = nil
	} else {
		sub.SubmittedAt = &now
	}
	if err := s.repo.SaveSubmission(ctx, sub); err != nil {
		return nil, repoError(err, "submission", "failed to save submission")
	}
	s.cache.InvalidateDashboards(ctx)
	return sub, nil
}

// Grade scores a submission within [0, max_score] and notifies the student.
func (s *SubmissionService) Grade(ctx context.Context, actor models.Actor, id string, req dto.GradeSubmissionRequest) (*models.SubmissionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid grade payload")
	}
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "submission", "failed to load submission")
	}
	if err := requireCourseStaff(ctx, s.enrollments, actor, sub.CourseID); err != nil {
		return nil, err
	}
	score := *req.Score
	if math.IsNaN(score) || score < 0 || score > sub.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score must be between 0 and %g", sub.MaxScore))
	}
	if sub.IsDraft() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "draft submissions cannot be graded")
	}
	if !sub.Status.CanTransition(models.SubmissionGraded) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("submission cannot be graded from %s", sub.Status))
	}

	gradedAt := s.now().UTC()
	if err := s.repo.Grade(ctx, id, score, req.Feedback, actor.ProfileID, gradedAt); err != nil {
		return nil, repoError(err, "submission", "failed to grade submission")
	}
	sub.Status = models.SubmissionGraded
	sub.Score = &score
	sub.Feedback = req.Feedback
	sub.GradedAt = &gradedAt
	sub.GradedBy = &actor.ProfileID

	sender := actor.ProfileID
	s.notifier.Notify(ctx, &sender, []string{sub.StudentID}, "Graded: "+sub.AssignmentTitle,
		fmt.Sprintf("You scored %g out of %g", score, sub.MaxScore))
	s.cache.InvalidateDashboards(ctx)
	return sub, nil
}

// Get returns a submission visible to the actor.
func (s *SubmissionService) Get(ctx context.Context, actor models.Actor, id string) (*models.SubmissionDetail, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "submission", "failed to load submission")
	}
	if err := s.access.check(ctx, actor, sub.StudentID); err != nil {
		return nil, err
	}
	return sub, nil
}

// List returns submissions; students only ever see their own.
func (s *SubmissionService) List(ctx context.Context, actor models.Actor, filter models.SubmissionFilter) ([]models.SubmissionDetail, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.ProfileID
	case models.RoleGuardian:
		if filter.StudentID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
		}
		if err := s.access.check(ctx, actor, filter.StudentID); err != nil {
			return nil, nil, err
		}
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list submissions")
	}
	return rows, pagination(filter.Page, filter.PageSize, total), nil
}

// Materialize creates not_submitted rows for every enrolled student lacking one.
func (s *SubmissionService) Materialize(ctx context.Context, actor models.Actor, assignmentID string) (*dto.MaterializeResponse, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, repoError(err, "assignment", "failed to load assignment")
	}
	if err := requireCourseStaff(ctx, s.enrollments, actor, assignment.CourseID); err != nil {
		return nil, err
	}
	n, err := s.repo.MaterializeMissing(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create placeholder submissions")
	}
	if n > 0 {
		s.cache.InvalidateDashboards(ctx)
	}
	return &dto.MaterializeResponse{AssignmentID: assignmentID, Created: n}, nil
}
