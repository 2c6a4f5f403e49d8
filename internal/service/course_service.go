package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns courses matching filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list courses")
	}
	return courses, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "course", "failed to load course")
	}
	return course, nil
}

// Create adds a course. Codes are unique, compared upper-cased.
func (s *CourseService) Create(ctx context.Context, req dto.CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid course payload")
	}
	course := &models.Course{
		Code:        normalizeCode(req.Code),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ClassYear:   req.ClassYear,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, repoError(err, "course code", "failed to create course")
	}
	s.cache.InvalidateDashboards(ctx)
	return course, nil
}

// Update replaces a course's editable fields.
func (s *CourseService) Update(ctx context.Context, id string, req dto.CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "course", "failed to load course")
	}
	course.Code = normalizeCode(req.Code)
	course.Name = strings.TrimSpace(req.Name)
	course.Description = req.Description
	course.ClassYear = req.ClassYear
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, repoError(err, "course code", "failed to update course")
	}
	s.cache.InvalidateDashboards(ctx)
	return course, nil
}

// Delete removes a course. Courses graded on a report card are kept.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReference) {
			return appErrors.Clone(appErrors.ErrConflict, "course is referenced by report grades")
		}
		return repoError(err, "course", "failed to delete course")
	}
	s.cache.InvalidateDashboards(ctx)
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
