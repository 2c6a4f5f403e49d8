package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req dto.CourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req dto.CourseRequest) (*models.Course, error)
	Delete(ctx context.Context, id string) error
}

type enrollmentService interface {
	Enroll(ctx context.Context, req dto.EnrollRequest) (*models.StudentCourse, error)
	Drop(ctx context.Context, studentID, courseID string) error
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.StudentCourseDetail, *models.Pagination, error)
	Roster(ctx context.Context, courseID string, page, size int) ([]models.StudentCourseDetail, *models.Pagination, error)
	StudentCourses(ctx context.Context, studentID string) ([]models.StudentCourseDetail, error)
	AssignFaculty(ctx context.Context, req dto.AssignFacultyRequest) (*models.FacultyCourse, error)
	UnassignFaculty(ctx context.Context, facultyID, courseID string) error
	FacultyCourses(ctx context.Context, facultyID string) ([]models.FacultyCourseDetail, error)
	CourseFaculty(ctx context.Context, courseID string) ([]models.FacultyCourseDetail, error)
}

// CourseHandler serves the course catalog, enrollments and teaching assignments.
type CourseHandler struct {
	courses     courseService
	enrollments enrollmentService
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(courses courseService, enrollments enrollmentService) *CourseHandler {
	return &CourseHandler{courses: courses, enrollments: enrollments}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param search query string false "Code or name search"
// @Param class_year query string false "Class year"
// @Param faculty_id query string false "Taught by"
// @Param student_id query string false "Taken by"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	p := parseList(c)
	filter := models.CourseFilter{
		Search:    c.Query("search"),
		ClassYear: c.Query("class_year"),
		FacultyID: c.Query("faculty_id"),
		StudentID: c.Query("student_id"),
		Page:      p.Page,
		PageSize:  p.PageSize,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
	}
	items, page, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.CourseRequest true "Course"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req dto.CourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roster godoc
// @Summary Course roster
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students [get]
func (h *CourseHandler) Roster(c *gin.Context) {
	p := parseList(c)
	items, page, err := h.enrollments.Roster(c.Request.Context(), c.Param("id"), p.Page, p.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// CourseFaculty godoc
// @Summary Faculty teaching a course
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/faculty [get]
func (h *CourseHandler) CourseFaculty(c *gin.Context) {
	items, err := h.enrollments.CourseFaculty(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// ListEnrollments godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param student_id query string false "Student"
// @Param course_id query string false "Course"
// @Param status query string false "ENROLLED or DROPPED"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *CourseHandler) ListEnrollments(c *gin.Context) {
	p := parseList(c)
	filter := models.EnrollmentFilter{
		StudentID: c.Query("student_id"),
		CourseID:  c.Query("course_id"),
		Status:    models.StudentCourseStatus(strings.ToUpper(c.Query("status"))),
		Page:      p.Page,
		PageSize:  p.PageSize,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
	}
	items, page, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// Enroll godoc
// @Summary Enroll a student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollRequest true "Enrollment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	sc, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sc)
}

// Drop godoc
// @Summary Drop an enrollment
// @Tags Enrollments
// @Param course_id path string true "Course ID"
// @Param student_id path string true "Student ID"
// @Success 204
// @Router /enrollments/{course_id}/{student_id} [delete]
func (h *CourseHandler) Drop(c *gin.Context) {
	if err := h.enrollments.Drop(c.Request.Context(), c.Param("student_id"), c.Param("course_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentCourses godoc
// @Summary A student's active courses
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/courses [get]
func (h *CourseHandler) StudentCourses(c *gin.Context) {
	items, err := h.enrollments.StudentCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// AssignFaculty godoc
// @Summary Assign faculty to a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.AssignFacultyRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Router /faculty-courses [post]
func (h *CourseHandler) AssignFaculty(c *gin.Context) {
	var req dto.AssignFacultyRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	fc, err := h.enrollments.AssignFaculty(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fc)
}

// UnassignFaculty godoc
// @Summary Remove faculty from a course
// @Tags Enrollments
// @Param course_id path string true "Course ID"
// @Param faculty_id path string true "Faculty ID"
// @Success 204
// @Router /faculty-courses/{course_id}/{faculty_id} [delete]
func (h *CourseHandler) UnassignFaculty(c *gin.Context) {
	if err := h.enrollments.UnassignFaculty(c.Request.Context(), c.Param("faculty_id"), c.Param("course_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// FacultyCourses godoc
// @Summary Courses a faculty member teaches
// @Tags Enrollments
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id}/courses [get]
func (h *CourseHandler) FacultyCourses(c *gin.Context) {
	items, err := h.enrollments.FacultyCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
