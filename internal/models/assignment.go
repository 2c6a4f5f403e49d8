package models

import "time"

// Assignment belongs to a course.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	MaxScore    float64   `db:"max_score" json:"max_score"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail adds the course name.
type AssignmentDetail struct {
	Assignment
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
}

// AssignmentFilter filters assignments. StudentID restricts to courses the student is enrolled in.
type AssignmentFilter struct {
	CourseID  string
	StudentID string
	DueAfter  *time.Time
	DueBefore *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
