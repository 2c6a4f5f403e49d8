package models

import "github.com/noah-isme/school-portal-api/pkg/grading"

// CourseProgress summarises a student's standing in one course.
// Average weights assignments by their max score.
type CourseProgress struct {
	CourseID         string         `json:"course_id"`
	CourseCode       string         `json:"course_code"`
	CourseName       string         `json:"course_name"`
	TotalAssignments int            `json:"total_assignments"`
	Completed        int            `json:"completed"`
	Graded           int            `json:"graded"`
	CompletionRate   float64        `json:"completion_rate"`
	Average          grading.Result `json:"average"`
	Letter           string         `json:"letter,omitempty"`
}

// StudentProgress is every course plus the overall average, which weights
// each course equally.
type StudentProgress struct {
	StudentID      string           `json:"student_id"`
	Courses        []CourseProgress `json:"courses"`
	OverallAverage grading.Result   `json:"overall_average"`
	OverallLetter  string           `json:"overall_letter,omitempty"`
}

// GradebookRow is one student's line in a course gradebook.
type GradebookRow struct {
	StudentID   string              `json:"student_id"`
	StudentName string              `json:"student_name"`
	Scores      map[string]*float64 `json:"scores"`
	Average     grading.Result      `json:"average"`
	Letter      string              `json:"letter,omitempty"`
}

// Gradebook is a faculty view of a course.
type Gradebook struct {
	Course      Course         `json:"course"`
	Assignments []Assignment   `json:"assignments"`
	Rows        []GradebookRow `json:"rows"`
}
