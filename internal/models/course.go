package models

import "time"

// Course is a catalog entry. Report grades reference courses as subjects.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	ClassYear   *string   `db:"class_year" json:"class_year,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter filters course listings. FacultyID and StudentID restrict to active links.
type CourseFilter struct {
	Search    string
	ClassYear string
	FacultyID string
	StudentID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
