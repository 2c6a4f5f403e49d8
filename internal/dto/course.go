package dto

import "time"

// CourseRequest creates or replaces a course.
type CourseRequest struct {
	Code        string  `json:"code" validate:"required,max=32"`
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description,omitempty"`
	ClassYear   *string `json:"class_year,omitempty" validate:"omitempty,max=32"`
}

// EnrollRequest enrolls a student in a course.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// AssignFacultyRequest assigns a faculty member to a course.
type AssignFacultyRequest struct {
	FacultyID string `json:"faculty_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// AssignmentRequest creates or replaces an assignment.
type AssignmentRequest struct {
	CourseID    string    `json:"course_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description,omitempty"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxScore    float64   `json:"max_score" validate:"gt=0,lte=1000"`
}

// SubmitRequest is a student's work for an assignment.
type SubmitRequest struct {
	Content string `json:"content" validate:"required"`
	// Draft keeps the submission in pending without marking it handed in.
	Draft bool `json:"draft"`
}

// GradeSubmissionRequest scores a submission.
type GradeSubmissionRequest struct {
	Score    *float64 `json:"score" validate:"required"`
	Feedback *string  `json:"feedback,omitempty"`
}

// MaterializeResponse reports how many placeholder submissions were created.
type MaterializeResponse struct {
	AssignmentID string `json:"assignment_id"`
	Created      int64  `json:"created"`
}
