package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Profiles      *ProfileHandler
	Courses       *CourseHandler
	Assignments   *AssignmentHandler
	Progress      *ProgressHandler
	Reports       *ReportHandler
	Notifications *NotificationHandler
	Dashboard     *DashboardHandler
}

// RouterDeps are the cross-cutting pieces the routes need.
type RouterDeps struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditWriter
	Logger *zap.Logger
}

// RegisterRoutes mounts the API on api.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, deps RouterDeps) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)
	students := middleware.RequireRoles(models.RoleStudent)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.Logger, action, resource)
	}

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/signup", h.Auth.SignUp)
	auth.POST("/refresh", h.Auth.Refresh)

	// Download tokens carry their own signature.
	api.GET("/exports/download/:token", h.Reports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)

	secured.GET("/dashboard", h.Dashboard.Mine)

	profiles := secured.Group("/profiles")
	profiles.GET("", admin, h.Profiles.List)
	profiles.POST("", admin, h.Profiles.Create)
	profiles.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfParam), h.Profiles.Get)
	profiles.PUT("/:id", h.Profiles.Update)
	profiles.PATCH("/:id/status", admin, h.Profiles.SetStatus)
	profiles.DELETE("/:id", admin, h.Profiles.Delete)

	studentRoutes := secured.Group("/students")
	studentRoutes.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty, models.RoleGuardian), h.Profiles.ListStudents)
	studentRoutes.GET("/:id", h.Profiles.GetStudent)
	studentRoutes.PUT("/:id", admin, h.Profiles.UpdateStudent)
	studentRoutes.GET("/:id/courses", middleware.RBAC(string(models.RoleAdmin), string(models.RoleFaculty), middleware.SelfParam), h.Courses.StudentCourses)
	studentRoutes.GET("/:id/progress", h.Progress.StudentProgress)
	studentRoutes.GET("/:id/reports", h.Reports.StudentReports)

	faculty := secured.Group("/faculty")
	faculty.GET("", staff, h.Profiles.ListFaculty)
	faculty.GET("/:id", staff, h.Profiles.GetFaculty)
	faculty.PUT("/:id", admin, h.Profiles.UpdateFaculty)
	faculty.GET("/:id/courses", middleware.RBAC(string(models.RoleAdmin), middleware.SelfParam), h.Courses.FacultyCourses)

	guardians := secured.Group("/guardians")
	guardians.POST("/links", admin, h.Profiles.LinkGuardian)
	guardians.GET("/:id/students", middleware.RBAC(string(models.RoleAdmin), middleware.SelfParam), h.Profiles.Children)
	guardians.DELETE("/:id/students/:student_id", admin, h.Profiles.UnlinkGuardian)

	courses := secured.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.GET("/:id", h.Courses.Get)
	courses.POST("", admin, h.Courses.Create)
	courses.PUT("/:id", admin, h.Courses.Update)
	courses.DELETE("/:id", admin, audit(models.AuditActionCourseDelete, "courses"), h.Courses.Delete)
	courses.GET("/:id/students", staff, h.Courses.Roster)
	courses.GET("/:id/faculty", h.Courses.CourseFaculty)
	courses.GET("/:id/gradebook", staff, h.Progress.Gradebook)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("", staff, h.Courses.ListEnrollments)
	enrollments.POST("", admin, audit(models.AuditActionEnrollment, "enrollments"), h.Courses.Enroll)
	enrollments.DELETE("/:course_id/:student_id", admin, audit(models.AuditActionEnrollment, "enrollments"), h.Courses.Drop)

	teaching := secured.Group("/faculty-courses")
	teaching.POST("", admin, h.Courses.AssignFaculty)
	teaching.DELETE("/:course_id/:faculty_id", admin, h.Courses.UnassignFaculty)

	assignments := secured.Group("/assignments")
	assignments.GET("", h.Assignments.List)
	assignments.GET("/:id", h.Assignments.Get)
	assignments.POST("", staff, h.Assignments.Create)
	assignments.PUT("/:id", staff, h.Assignments.Update)
	assignments.DELETE("/:id", staff, h.Assignments.Delete)
	assignments.POST("/:id/submissions", students, h.Assignments.Submit)
	assignments.POST("/:id/submissions/materialize", staff, h.Assignments.Materialize)

	submissions := secured.Group("/submissions")
	submissions.GET("", h.Assignments.ListSubmissions)
	submissions.GET("/:id", h.Assignments.GetSubmission)
	submissions.PUT("/:id/grade", staff, audit(models.AuditActionSubmissionGrade, "submissions"), h.Assignments.GradeSubmission)

	reports := secured.Group("/reports")
	reports.GET("", h.Reports.List)
	reports.POST("", staff, h.Reports.Save)
	reports.GET("/lookup", h.Reports.Lookup)
	reports.GET("/ranking", staff, h.Reports.Ranking)
	reports.POST("/ranking/subjects", staff, h.Reports.RankSubjects)
	reports.GET("/:id", h.Reports.Get)
	reports.DELETE("/:id", admin, h.Reports.Delete)
	reports.DELETE("/:id/grades/:grade_id", staff, h.Reports.RemoveGrade)

	exports := secured.Group("/exports")
	exports.POST("", h.Reports.Export)
	exports.GET("/:id", h.Reports.ExportStatus)

	notifications := secured.Group("/notifications")
	notifications.GET("", h.Notifications.List)
	notifications.POST("", staff, h.Notifications.Send)
	notifications.GET("/unread-count", h.Notifications.UnreadCount)
	notifications.PATCH("/read-all", h.Notifications.MarkAllRead)
	notifications.PATCH("/:id/read", h.Notifications.MarkRead)
	notifications.DELETE("/:id", h.Notifications.Delete)
}
