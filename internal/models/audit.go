package models

import "time"

// Audit actions.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionLogout          = "LOGOUT"
	AuditActionProfileCreate   = "PROFILE_CREATE"
	AuditActionProfileUpdate   = "PROFILE_UPDATE"
	AuditActionProfileDelete   = "PROFILE_DELETE"
	AuditActionPasswordChange  = "PASSWORD_CHANGE"
	AuditActionReportSave      = "REPORT_SAVE"
	AuditActionReportDelete    = "REPORT_DELETE"
	AuditActionGradeRemove     = "GRADE_REMOVE"
	AuditActionSubmissionGrade = "SUBMISSION_GRADE"
	AuditActionCourseDelete    = "COURSE_DELETE"
	AuditActionEnrollment      = "ENROLLMENT_CHANGE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ProfileID  *string   `db:"profile_id" json:"profile_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
