package models

import "time"

// Student is the role extension row of a STUDENT profile.
type Student struct {
	ProfileID     string    `db:"profile_id" json:"profile_id"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	ClassYear     string    `db:"class_year" json:"class_year"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// StudentDetail joins the student row with its profile.
type StudentDetail struct {
	Student
	FullName string        `db:"full_name" json:"full_name"`
	Email    string        `db:"email" json:"email"`
	Status   ProfileStatus `db:"status" json:"status"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	ClassYear  string
	GuardianID string
	CourseID   string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// GuardianLink ties a guardian profile to a student.
type GuardianLink struct {
	GuardianID   string    `db:"guardian_id" json:"guardian_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Relationship string    `db:"relationship" json:"relationship"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
