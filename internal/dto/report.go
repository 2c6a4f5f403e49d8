package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// GradeInput is one subject row of a report save. Total, grade and remark
// are derived by the server.
type GradeInput struct {
	SubjectID        string  `json:"subject_id" validate:"required"`
	ClassScore       float64 `json:"class_score" validate:"gte=0,lte=100"`
	ExamScore        float64 `json:"exam_score" validate:"gte=0,lte=100"`
	Position         *int    `json:"position,omitempty" validate:"omitempty,gte=1"`
	TeacherSignature *string `json:"teacher_signature,omitempty"`
}

// SaveReportRequest upserts a report keyed by (student_id, term, academic_year)
// and replaces its grades with Grades.
type SaveReportRequest struct {
	StudentID          string       `json:"student_id" validate:"required"`
	Term               string       `json:"term" validate:"required,max=40"`
	AcademicYear       string       `json:"academic_year" validate:"required,max=20"`
	ClassYear          *string      `json:"class_year,omitempty" validate:"omitempty,max=32"`
	Attendance         *string      `json:"attendance,omitempty"`
	Conduct            *string      `json:"conduct,omitempty"`
	Interest           *string      `json:"interest,omitempty"`
	NextClass          *string      `json:"next_class,omitempty"`
	TeacherRemarks     *string      `json:"teacher_remarks,omitempty"`
	PrincipalSignature *string      `json:"principal_signature,omitempty"`
	ReopeningDate      *time.Time   `json:"reopening_date,omitempty"`
	Grades             []GradeInput `json:"grades" validate:"dive"`
}

// RankingQuery selects the cohort to rank.
type RankingQuery struct {
	Term         string `form:"term" validate:"required"`
	AcademicYear string `form:"academic_year" validate:"required"`
	ClassYear    string `form:"class_year" validate:"required"`
}

// RankSubjectsResponse reports how many grade positions were written.
type RankSubjectsResponse struct {
	Updated int64 `json:"updated"`
}

// ExportRequest enqueues a report card render.
type ExportRequest struct {
	ReportID string              `json:"report_id" validate:"required"`
	Format   models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	ReportID  string              `json:"report_id"`
	Format    models.ExportFormat `json:"format"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
