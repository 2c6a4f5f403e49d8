package models

import "time"

// Faculty is the role extension row of a FACULTY profile.
type Faculty struct {
	ProfileID   string    `db:"profile_id" json:"profile_id"`
	StaffNumber string    `db:"staff_number" json:"staff_number"`
	Department  string    `db:"department" json:"department"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// FacultyDetail joins the faculty row with its profile.
type FacultyDetail struct {
	Faculty
	FullName string        `db:"full_name" json:"full_name"`
	Email    string        `db:"email" json:"email"`
	Status   ProfileStatus `db:"status" json:"status"`
}

// FacultyFilter filters faculty listings.
type FacultyFilter struct {
	Search     string
	Department string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
