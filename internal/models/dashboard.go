package models

import "time"

// StudentDashboard is the landing view of the student portal.
type StudentDashboard struct {
	Profile             ProfileInfo        `json:"profile"`
	Progress            StudentProgress    `json:"progress"`
	UpcomingAssignments []AssignmentDetail `json:"upcoming_assignments"`
	LatestReport        *Report            `json:"latest_report,omitempty"`
	UnreadNotifications int                `json:"unread_notifications"`
	GeneratedAt         time.Time          `json:"generated_at"`
}

// FacultyDashboard is the landing view of the faculty portal.
type FacultyDashboard struct {
	Profile             ProfileInfo           `json:"profile"`
	Courses             []FacultyCourseDetail `json:"courses"`
	AwaitingGrading     []SubmissionDetail    `json:"awaiting_grading"`
	UnreadNotifications int                   `json:"unread_notifications"`
	GeneratedAt         time.Time             `json:"generated_at"`
}

// ChildSummary is one child on the guardian dashboard.
type ChildSummary struct {
	Student      StudentDetail   `json:"student"`
	Progress     StudentProgress `json:"progress"`
	LatestReport *Report         `json:"latest_report,omitempty"`
}

// GuardianDashboard is the landing view of the guardian portal.
type GuardianDashboard struct {
	Profile             ProfileInfo    `json:"profile"`
	Children            []ChildSummary `json:"children"`
	UnreadNotifications int            `json:"unread_notifications"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

// AdminCounts are headline totals for administrators.
type AdminCounts struct {
	Students          int `db:"students" json:"students"`
	Faculty           int `db:"faculty" json:"faculty"`
	Guardians         int `db:"guardians" json:"guardians"`
	Courses           int `db:"courses" json:"courses"`
	ActiveEnrollments int `db:"active_enrollments" json:"active_enrollments"`
	Reports           int `db:"reports" json:"reports"`
}

// AdminDashboard is the landing view of the admin portal.
type AdminDashboard struct {
	Counts         AdminCounts `json:"counts"`
	RecentProfiles []Profile   `json:"recent_profiles"`
	GeneratedAt    time.Time   `json:"generated_at"`
}
