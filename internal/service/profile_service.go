package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error)
	CreateWithExtension(ctx context.Context, profile *models.Profile, student *models.Student, faculty *models.Faculty) error
	Update(ctx context.Context, profile *models.Profile) error
	UpdateStatus(ctx context.Context, id string, status models.ProfileStatus) error
	Delete(ctx context.Context, id string) error
	RevokeProfileRefreshTokens(ctx context.Context, profileID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	Update(ctx context.Context, student *models.Student) error
	LinkGuardian(ctx context.Context, link *models.GuardianLink) error
	UnlinkGuardian(ctx context.Context, guardianID, studentID string) error
	ListByGuardian(ctx context.Context, guardianID string) ([]models.StudentDetail, error)
	IsGuardianOf(ctx context.Context, guardianID, studentID string) (bool, error)
}

type facultyRepository interface {
	FindByID(ctx context.Context, id string) (*models.FacultyDetail, error)
	List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, int, error)
	Update(ctx context.Context, faculty *models.Faculty) error
}

type sessionIssuer interface {
	IssueSession(ctx context.Context, profile *models.Profile, ip, userAgent string) (*models.Session, error)
}

// ProfileService manages profiles, their role rows and guardian links.
type ProfileService struct {
	profiles  profileRepository
	students  studentRepository
	faculty   facultyRepository
	sessions  sessionIssuer
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	access    studentAccess
}

// NewProfileService wires the profile use cases.
func NewProfileService(profiles profileRepository, students studentRepository, faculty facultyRepository, sessions sessionIssuer, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		profiles:  profiles,
		students:  students,
		faculty:   faculty,
		sessions:  sessions,
		cache:     cache,
		validator: validate,
		logger:    logger,
		access:    studentAccess{guardians: students},
	}
}

// Create registers a profile. A session is issued only when opts.IssueSession is set.
func (s *ProfileService) Create(ctx context.Context, actorID string, req dto.CreateProfileRequest, opts dto.RegisterOptions) (*dto.RegisterResult, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	req.StaffNumber = strings.TrimSpace(req.StaffNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid profile payload")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	profile := &models.Profile{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         req.Role,
		Status:       models.ProfileStatusActive,
	}
	var student *models.Student
	var faculty *models.Faculty
	switch req.Role {
	case models.RoleStudent:
		student = &models.Student{StudentNumber: req.StudentNumber, ClassYear: req.ClassYear}
	case models.RoleFaculty:
		faculty = &models.Faculty{StaffNumber: req.StaffNumber, Department: req.Department}
	}

	if err := s.profiles.CreateWithExtension(ctx, profile, student, faculty); err != nil {
		return nil, repoError(err, "profile", "failed to create profile")
	}
	s.auditProfile(ctx, actorID, models.AuditActionProfileCreate, profile.ID, profile)
	s.cache.InvalidateDashboards(ctx)

	result := &dto.RegisterResult{Profile: *profile}
	if opts.IssueSession {
		session, err := s.sessions.IssueSession(ctx, profile, opts.IP, opts.UserAgent)
		if err != nil {
			return nil, err
		}
		result.Session = session
	}
	return result, nil
}

// SignUp is self registration for students and guardians.
func (s *ProfileService) SignUp(ctx context.Context, req dto.SignUpRequest, opts dto.RegisterOptions) (*dto.RegisterResult, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid sign up payload")
	}
	create := dto.CreateProfileRequest{
		Email:         req.Email,
		Password:      req.Password,
		FullName:      req.FullName,
		Phone:         req.Phone,
		Role:          req.Role,
		StudentNumber: req.StudentNumber,
		ClassYear:     req.ClassYear,
	}
	return s.Create(ctx, "", create, opts)
}

// Get returns one profile.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "profile", "failed to load profile")
	}
	return profile, nil
}

// List returns profiles with pagination metadata.
func (s *ProfileService) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, *models.Pagination, error) {
	profiles, total, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list profiles")
	}
	return profiles, pagination(filter.Page, filter.PageSize, total), nil
}

// Update patches a profile. Non-admins may only update themselves.
func (s *ProfileService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateProfileRequest) (*models.Profile, error) {
	if !actor.IsAdmin() && actor.ProfileID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot update another profile")
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid profile payload")
	}
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "profile", "failed to load profile")
	}
	if req.Email != nil {
		profile.Email = *req.Email
	}
	if req.FullName != nil {
		profile.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		profile.Phone = req.Phone
	}
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, repoError(err, "profile", "failed to update profile")
	}
	s.auditProfile(ctx, actor.ProfileID, models.AuditActionProfileUpdate, id, req)
	s.cache.InvalidateDashboards(ctx)
	return profile, nil
}

// SetStatus activates or deactivates a profile. Leaving ACTIVE ends every session.
func (s *ProfileService) SetStatus(ctx context.Context, actorID, id string, req dto.UpdateStatusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid status payload")
	}
	if actorID == id && req.Status != models.ProfileStatusActive {
		return appErrors.Clone(appErrors.ErrValidation, "cannot deactivate your own profile")
	}
	if err := s.profiles.UpdateStatus(ctx, id, req.Status); err != nil {
		return repoError(err, "profile", "failed to update status")
	}
	if req.Status != models.ProfileStatusActive {
		if err := s.profiles.RevokeProfileRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions of deactivated profile", zap.String("profile_id", id), zap.Error(err))
		}
	}
	s.auditProfile(ctx, actorID, models.AuditActionProfileUpdate, id, req)
	return nil
}

// Delete removes a profile and its role rows.
func (s *ProfileService) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete your own profile")
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		return repoError(err, "profile", "failed to delete profile")
	}
	s.auditProfile(ctx, actorID, models.AuditActionProfileDelete, id, nil)
	s.cache.InvalidateDashboards(ctx)
	return nil
}

// GetStudent returns a student visible to actor.
func (s *ProfileService) GetStudent(ctx context.Context, actor models.Actor, id string) (*models.StudentDetail, error) {
	if err := s.access.check(ctx, actor, id); err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "student", "failed to load student")
	}
	return student, nil
}

// ListStudents lists students; guardians only see their own children.
func (s *ProfileService) ListStudents(ctx context.Context, actor models.Actor, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleGuardian:
		filter.GuardianID = actor.ProfileID
	case models.RoleStudent:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot list students")
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	return students, pagination(filter.Page, filter.PageSize, total), nil
}

// UpdateStudent patches the student role row.
func (s *ProfileService) UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid student payload")
	}
	current, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "student", "failed to load student")
	}
	if req.StudentNumber != nil {
		current.StudentNumber = strings.TrimSpace(*req.StudentNumber)
	}
	if req.ClassYear != nil {
		current.ClassYear = *req.ClassYear
	}
	if err := s.students.Update(ctx, &current.Student); err != nil {
		return nil, repoError(err, "student number", "failed to update student")
	}
	return current, nil
}

// GetFaculty returns a faculty member.
func (s *ProfileService) GetFaculty(ctx context.Context, id string) (*models.FacultyDetail, error) {
	f, err := s.faculty.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "faculty", "failed to load faculty")
	}
	return f, nil
}

// ListFaculty lists faculty members.
func (s *ProfileService) ListFaculty(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, *models.Pagination, error) {
	rows, total, err := s.faculty.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list faculty")
	}
	return rows, pagination(filter.Page, filter.PageSize, total), nil
}

// UpdateFaculty patches the faculty role row.
func (s *ProfileService) UpdateFaculty(ctx context.Context, id string, req dto.UpdateFacultyRequest) (*models.FacultyDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid faculty payload")
	}
	current, err := s.faculty.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "faculty", "failed to load faculty")
	}
	if req.StaffNumber != nil {
		current.StaffNumber = strings.TrimSpace(*req.StaffNumber)
	}
	if req.Department != nil {
		current.Department = *req.Department
	}
	if err := s.faculty.Update(ctx, &current.Faculty); err != nil {
		return nil, repoError(err, "staff number", "failed to update faculty")
	}
	return current, nil
}

// LinkGuardian links a guardian profile to a student.
func (s *ProfileService) LinkGuardian(ctx context.Context, req dto.LinkGuardianRequest) (*models.GuardianLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid guardian link payload")
	}
	guardian, err := s.profiles.FindByID(ctx, req.GuardianID)
	if err != nil {
		return nil, repoError(err, "guardian", "failed to load guardian")
	}
	if guardian.Role != models.RoleGuardian {
		return nil, appErrors.Clone(appErrors.ErrValidation, "profile is not a guardian")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, repoError(err, "student", "failed to load student")
	}
	link := &models.GuardianLink{GuardianID: req.GuardianID, StudentID: req.StudentID, Relationship: req.Relationship}
	if err := s.students.LinkGuardian(ctx, link); err != nil {
		return nil, repoError(err, "guardian link", "failed to link guardian")
	}
	s.cache.InvalidateDashboards(ctx)
	return link, nil
}

// UnlinkGuardian removes a guardian link.
func (s *ProfileService) UnlinkGuardian(ctx context.Context, guardianID, studentID string) error {
	if err := s.students.UnlinkGuardian(ctx, guardianID, studentID); err != nil {
		return repoError(err, "guardian link", "failed to unlink guardian")
	}
	s.cache.InvalidateDashboards(ctx)
	return nil
}

// Children returns the students linked to a guardian.
func (s *ProfileService) Children(ctx context.Context, guardianID string) ([]models.StudentDetail, error) {
	children, err := s.students.ListByGuardian(ctx, guardianID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list children")
	}
	return children, nil
}

func (s *ProfileService) auditProfile(ctx context.Context, actorID, action, profileID string, payload interface{}) {
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	var values []byte
	if payload != nil {
		values, _ = json.Marshal(payload)
	}
	target := profileID
	if err := s.profiles.CreateAuditLog(ctx, &models.AuditLog{
		ProfileID:  actor,
		Action:     action,
		Resource:   "profile",
		ResourceID: &target,
		NewValues:  values,
	}); err != nil {
		s.logger.Warn("failed to record profile audit log", zap.String("action", action), zap.Error(err))
	}
}

func pagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return models.NewPagination(page, size, total)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
