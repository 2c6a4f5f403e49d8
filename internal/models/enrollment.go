package models

import "time"

// StudentCourseStatus tracks a student's enrollment. Drops are status flips.
type StudentCourseStatus string

const (
	StudentCourseEnrolled StudentCourseStatus = "ENROLLED"
	StudentCourseDropped  StudentCourseStatus = "DROPPED"
)

// FacultyCourseStatus tracks a faculty assignment.
type FacultyCourseStatus string

const (
	FacultyCourseActive   FacultyCourseStatus = "ACTIVE"
	FacultyCourseInactive FacultyCourseStatus = "INACTIVE"
)

// StudentCourse links a student to a course.
type StudentCourse struct {
	ID         string              `db:"id" json:"id"`
	StudentID  string              `db:"student_id" json:"student_id"`
	CourseID   string              `db:"course_id" json:"course_id"`
	Status     StudentCourseStatus `db:"status" json:"status"`
	EnrolledAt time.Time           `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt  *time.Time          `db:"dropped_at" json:"dropped_at,omitempty"`
}

// StudentCourseDetail adds names for roster and timetable views.
type StudentCourseDetail struct {
	StudentCourse
	StudentName   string `db:"student_name" json:"student_name"`
	StudentNumber string `db:"student_number" json:"student_number"`
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseName    string `db:"course_name" json:"course_name"`
}

// FacultyCourse assigns a faculty member to teach a course.
type FacultyCourse struct {
	ID         string              `db:"id" json:"id"`
	FacultyID  string              `db:"faculty_id" json:"faculty_id"`
	CourseID   string              `db:"course_id" json:"course_id"`
	Status     FacultyCourseStatus `db:"status" json:"status"`
	AssignedAt time.Time           `db:"assigned_at" json:"assigned_at"`
}

// FacultyCourseDetail adds names to a faculty assignment.
type FacultyCourseDetail struct {
	FacultyCourse
	FacultyName string `db:"faculty_name" json:"faculty_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// EnrollmentFilter filters student enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    StudentCourseStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
