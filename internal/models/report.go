package models

import "time"

// Report is the term report card header, one per (student, term, academic year).
type Report struct {
	ID                 string     `db:"id" json:"id"`
	StudentID          string     `db:"student_id" json:"student_id"`
	Term               string     `db:"term" json:"term"`
	AcademicYear       string     `db:"academic_year" json:"academic_year"`
	ClassYear          *string    `db:"class_year" json:"class_year,omitempty"`
	TotalScore         float64    `db:"total_score" json:"total_score"`
	AverageScore       float64    `db:"average_score" json:"average_score"`
	OverallGrade       string     `db:"overall_grade" json:"overall_grade"`
	Attendance         *string    `db:"attendance" json:"attendance,omitempty"`
	Conduct            *string    `db:"conduct" json:"conduct,omitempty"`
	Interest           *string    `db:"interest" json:"interest,omitempty"`
	NextClass          *string    `db:"next_class" json:"next_class,omitempty"`
	TeacherRemarks     *string    `db:"teacher_remarks" json:"teacher_remarks,omitempty"`
	PrincipalSignature *string    `db:"principal_signature" json:"principal_signature,omitempty"`
	ReopeningDate      *time.Time `db:"reopening_date" json:"reopening_date,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Grade is one subject row of a report.
type Grade struct {
	ID               string  `db:"id" json:"id"`
	ReportID         string  `db:"report_id" json:"report_id"`
	SubjectID        string  `db:"subject_id" json:"subject_id"`
	ClassScore       float64 `db:"class_score" json:"class_score"`
	ExamScore        float64 `db:"exam_score" json:"exam_score"`
	TotalScore       float64 `db:"total_score" json:"total_score"`
	Position         *int    `db:"position" json:"position,omitempty"`
	Grade            string  `db:"grade" json:"grade"`
	Remark           string  `db:"remark" json:"remark"`
	TeacherSignature *string `db:"teacher_signature" json:"teacher_signature,omitempty"`
}

// GradeDetail adds the subject code and name.
type GradeDetail struct {
	Grade
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// ReportDetail is a report joined with its student and grades.
type ReportDetail struct {
	Report
	StudentName   string        `db:"student_name" json:"student_name"`
	StudentNumber string        `db:"student_number" json:"student_number"`
	Grades        []GradeDetail `db:"-" json:"grades"`
}

// ReportFilter filters report listings. StudentIDs restricts to a guardian's children.
type ReportFilter struct {
	StudentID    string
	StudentIDs   []string
	Term         string
	AcademicYear string
	ClassYear    string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// ReportKey identifies a report.
type ReportKey struct {
	StudentID    string `json:"student_id"`
	Term         string `json:"term"`
	AcademicYear string `json:"academic_year"`
}

// RankingEntry is a student's overall position within a class for a term.
type RankingEntry struct {
	ReportID     string  `db:"report_id" json:"report_id"`
	StudentID    string  `db:"student_id" json:"student_id"`
	StudentName  string  `db:"student_name" json:"student_name"`
	TotalScore   float64 `db:"total_score" json:"total_score"`
	AverageScore float64 `db:"average_score" json:"average_score"`
	OverallGrade string  `db:"overall_grade" json:"overall_grade"`
	Position     int     `db:"position" json:"position"`
}

// ReportAggregate is the derived header totals of a report.
type ReportAggregate struct {
	TotalScore   float64 `db:"total_score" json:"total_score"`
	AverageScore float64 `db:"average_score" json:"average_score"`
	OverallGrade string  `db:"overall_grade" json:"overall_grade"`
}
