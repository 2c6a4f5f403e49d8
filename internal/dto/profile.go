package dto

import "github.com/noah-isme/school-portal-api/internal/models"

// CreateProfileRequest creates a profile and, for students and faculty, its role row.
type CreateProfileRequest struct {
	Email         string      `json:"email" validate:"required,email"`
	Password      string      `json:"password" validate:"required,min=8"`
	FullName      string      `json:"full_name" validate:"required,max=120"`
	Phone         *string     `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role          models.Role `json:"role" validate:"required,oneof=STUDENT FACULTY GUARDIAN ADMIN"`
	StudentNumber string      `json:"student_number,omitempty" validate:"required_if=Role STUDENT,max=32"`
	ClassYear     string      `json:"class_year,omitempty" validate:"max=32"`
	StaffNumber   string      `json:"staff_number,omitempty" validate:"required_if=Role FACULTY,max=32"`
	Department    string      `json:"department,omitempty" validate:"max=120"`
}

// SignUpRequest is the public self registration payload.
type SignUpRequest struct {
	Email         string      `json:"email" validate:"required,email"`
	Password      string      `json:"password" validate:"required,min=8"`
	FullName      string      `json:"full_name" validate:"required,max=120"`
	Phone         *string     `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role          models.Role `json:"role" validate:"required,oneof=STUDENT GUARDIAN"`
	StudentNumber string      `json:"student_number,omitempty" validate:"required_if=Role STUDENT,max=32"`
	ClassYear     string      `json:"class_year,omitempty" validate:"max=32"`
}

// RegisterOptions controls side effects of a single registration.
// IssueSession is false when an administrator creates the account, so the
// admin's own session is never replaced by the new profile's.
type RegisterOptions struct {
	IssueSession bool
	IP           string
	UserAgent    string
}

// RegisterResult is the created profile and, when requested, its session.
type RegisterResult struct {
	Profile models.Profile  `json:"profile"`
	Session *models.Session `json:"session,omitempty"`
}

// UpdateProfileRequest patches profile fields.
type UpdateProfileRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// UpdateStatusRequest activates or deactivates a profile.
type UpdateStatusRequest struct {
	Status models.ProfileStatus `json:"status" validate:"required,oneof=ACTIVE INACTIVE PENDING"`
}

// UpdateStudentRequest patches the student role row.
type UpdateStudentRequest struct {
	StudentNumber *string `json:"student_number,omitempty" validate:"omitempty,min=1,max=32"`
	ClassYear     *string `json:"class_year,omitempty" validate:"omitempty,max=32"`
}

// UpdateFacultyRequest patches the faculty role row.
type UpdateFacultyRequest struct {
	StaffNumber *string `json:"staff_number,omitempty" validate:"omitempty,min=1,max=32"`
	Department  *string `json:"department,omitempty" validate:"omitempty,max=120"`
}

// LinkGuardianRequest links a guardian to a student.
type LinkGuardianRequest struct {
	GuardianID   string `json:"guardian_id" validate:"required"`
	StudentID    string `json:"student_id" validate:"required"`
	Relationship string `json:"relationship" validate:"max=40"`
}
