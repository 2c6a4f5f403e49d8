package models

import "time"

// SubmissionStatus is the lifecycle of a student's work on an assignment.
type SubmissionStatus string

const (
	SubmissionNotSubmitted SubmissionStatus = "not_submitted"
	SubmissionPending      SubmissionStatus = "pending"
	SubmissionSubmitted    SubmissionStatus = "submitted"
	SubmissionGraded       SubmissionStatus = "graded"
)

var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionNotSubmitted: {SubmissionPending, SubmissionSubmitted, SubmissionGraded},
	SubmissionPending:      {SubmissionPending, SubmissionSubmitted, SubmissionGraded},
	SubmissionSubmitted:    {SubmissionSubmitted, SubmissionGraded},
	SubmissionGraded:       {SubmissionGraded},
}

// CanTransition reports whether a submission may move from s to next.
// Graded work is final apart from re-grading.
func (s SubmissionStatus) CanTransition(next SubmissionStatus) bool {
	for _, allowed := range submissionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Submission is the single (student, assignment) row.
type Submission struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	Status       SubmissionStatus `db:"status" json:"status"`
	Content      *string          `db:"content" json:"content,omitempty"`
	SubmittedAt  *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	Late         bool             `db:"late" json:"late"`
	Score        *float64         `db:"score" json:"score,omitempty"`
	Feedback     *string          `db:"feedback" json:"feedback,omitempty"`
	GradedAt     *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
	GradedBy     *string          `db:"graded_by" json:"graded_by,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// IsDraft reports whether the row is saved work the student has not handed in.
func (s Submission) IsDraft() bool {
	return s.Status == SubmissionPending && s.SubmittedAt == nil
}

// SubmissionDetail adds student and assignment context.
type SubmissionDetail struct {
	Submission
	StudentName     string    `db:"student_name" json:"student_name"`
	AssignmentTitle string    `db:"assignment_title" json:"assignment_title"`
	CourseID        string    `db:"course_id" json:"course_id"`
	MaxScore        float64   `db:"max_score" json:"max_score"`
	DueDate         time.Time `db:"due_date" json:"due_date"`
}

// SubmissionFilter filters submissions.
type SubmissionFilter struct {
	AssignmentID string
	StudentID    string
	CourseID     string
	Status       SubmissionStatus
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// ScoreRow is one (course, assignment, submission) triple for a student,
// assembled by a single join for progress and gradebook views.
type ScoreRow struct {
	StudentID    string            `db:"student_id"`
	CourseID     string            `db:"course_id"`
	AssignmentID string            `db:"assignment_id"`
	MaxScore     float64           `db:"max_score"`
	Status       *SubmissionStatus `db:"status"`
	Score        *float64          `db:"score"`
	SubmittedAt  *time.Time        `db:"submitted_at"`
}
