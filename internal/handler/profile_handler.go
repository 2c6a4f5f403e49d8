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

type profileService interface {
	Create(ctx context.Context, actorID string, req dto.CreateProfileRequest, opts dto.RegisterOptions) (*dto.RegisterResult, error)
	Get(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, *models.Pagination, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateProfileRequest) (*models.Profile, error)
	SetStatus(ctx context.Context, actorID, id string, req dto.UpdateStatusRequest) error
	Delete(ctx context.Context, actorID, id string) error
	GetStudent(ctx context.Context, actor models.Actor, id string) (*models.StudentDetail, error)
	ListStudents(ctx context.Context, actor models.Actor, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.StudentDetail, error)
	GetFaculty(ctx context.Context, id string) (*models.FacultyDetail, error)
	ListFaculty(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, *models.Pagination, error)
	UpdateFaculty(ctx context.Context, id string, req dto.UpdateFacultyRequest) (*models.FacultyDetail, error)
	LinkGuardian(ctx context.Context, req dto.LinkGuardianRequest) (*models.GuardianLink, error)
	UnlinkGuardian(ctx context.Context, guardianID, studentID string) error
	Children(ctx context.Context, guardianID string) ([]models.StudentDetail, error)
}

// ProfileHandler serves profiles and the student, faculty and guardian role views.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// List godoc
// @Summary List profiles
// @Tags Profiles
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param status query string false "Status filter"
// @Param search query string false "Name or email search"
// @Success 200 {object} response.Envelope
// @Router /profiles [get]
func (h *ProfileHandler) List(c *gin.Context) {
	p := parseList(c)
	filter := models.ProfileFilter{Search: c.Query("search"), Page: p.Page, PageSize: p.PageSize, SortBy: p.SortBy, SortOrder: p.SortOrder}
	if role := strings.ToUpper(c.Query("role")); role != "" {
		r := models.Role(role)
		filter.Role = &r
	}
	if status := strings.ToUpper(c.Query("status")); status != "" {
		s := models.ProfileStatus(status)
		filter.Status = &s
	}
	items, page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// Get godoc
// @Summary Get profile
// @Tags Profiles
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /profiles/{id} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// Create godoc
// @Summary Create profile
// @Description Administrators create any role; no session is issued
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body dto.CreateProfileRequest true "Profile"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /profiles [post]
func (h *ProfileHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	res, err := h.service.Create(c.Request.Context(), actor.ProfileID, req, dto.RegisterOptions{})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res.Profile)
}

// Update godoc
// @Summary Update profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param payload body dto.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /profiles/{id} [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	profile, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// SetStatus godoc
// @Summary Activate or deactivate a profile
// @Tags Profiles
// @Accept json
// @Param id path string true "Profile ID"
// @Param payload body dto.UpdateStatusRequest true "Status"
// @Success 204
// @Router /profiles/{id}/status [patch]
func (h *ProfileHandler) SetStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	if err := h.service.SetStatus(c.Request.Context(), actor.ProfileID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete profile
// @Tags Profiles
// @Param id path string true "Profile ID"
// @Success 204
// @Router /profiles/{id} [delete]
func (h *ProfileHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor.ProfileID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListStudents godoc
// @Summary List students
// @Description Guardians only see their linked children
// @Tags Students
// @Produce json
// @Param class_year query string false "Class year"
// @Param course_id query string false "Enrolled course"
// @Param search query string false "Name or number search"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *ProfileHandler) ListStudents(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p := parseList(c)
	filter := models.StudentFilter{
		Search:    c.Query("search"),
		ClassYear: c.Query("class_year"),
		CourseID:  c.Query("course_id"),
		Page:      p.Page,
		PageSize:  p.PageSize,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
	}
	items, page, err := h.service.ListStudents(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// GetStudent godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Param id path string true "Student profile ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *ProfileHandler) GetStudent(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	student, err := h.service.GetStudent(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// UpdateStudent godoc
// @Summary Update student record
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student profile ID"
// @Param payload body dto.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *ProfileHandler) UpdateStudent(c *gin.Context) {
	var req dto.UpdateStudentRequest
	if !bindJSON(c, &req, "invalid student payload") {
		return
	}
	student, err := h.service.UpdateStudent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// ListFaculty godoc
// @Summary List faculty
// @Tags Faculty
// @Produce json
// @Param department query string false "Department"
// @Success 200 {object} response.Envelope
// @Router /faculty [get]
func (h *ProfileHandler) ListFaculty(c *gin.Context) {
	p := parseList(c)
	filter := models.FacultyFilter{
		Search:     c.Query("search"),
		Department: c.Query("department"),
		Page:       p.Page,
		PageSize:   p.PageSize,
		SortBy:     p.SortBy,
		SortOrder:  p.SortOrder,
	}
	items, page, err := h.service.ListFaculty(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// GetFaculty godoc
// @Summary Get faculty member
// @Tags Faculty
// @Produce json
// @Param id path string true "Faculty profile ID"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id} [get]
func (h *ProfileHandler) GetFaculty(c *gin.Context) {
	faculty, err := h.service.GetFaculty(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, faculty)
}

// UpdateFaculty godoc
// @Summary Update faculty record
// @Tags Faculty
// @Accept json
// @Produce json
// @Param id path string true "Faculty profile ID"
// @Param payload body dto.UpdateFacultyRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id} [put]
func (h *ProfileHandler) UpdateFaculty(c *gin.Context) {
	var req dto.UpdateFacultyRequest
	if !bindJSON(c, &req, "invalid faculty payload") {
		return
	}
	faculty, err := h.service.UpdateFaculty(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, faculty)
}

// LinkGuardian godoc
// @Summary Link a guardian to a student
// @Tags Guardians
// @Accept json
// @Produce json
// @Param payload body dto.LinkGuardianRequest true "Link"
// @Success 201 {object} response.Envelope
// @Router /guardians/links [post]
func (h *ProfileHandler) LinkGuardian(c *gin.Context) {
	var req dto.LinkGuardianRequest
	if !bindJSON(c, &req, "invalid guardian link payload") {
		return
	}
	link, err := h.service.LinkGuardian(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// UnlinkGuardian godoc
// @Summary Remove a guardian link
// @Tags Guardians
// @Param id path string true "Guardian profile ID"
// @Param student_id path string true "Student profile ID"
// @Success 204
// @Router /guardians/{id}/students/{student_id} [delete]
func (h *ProfileHandler) UnlinkGuardian(c *gin.Context) {
	if err := h.service.UnlinkGuardian(c.Request.Context(), c.Param("id"), c.Param("student_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Children godoc
// @Summary List a guardian's children
// @Tags Guardians
// @Produce json
// @Param id path string true "Guardian profile ID"
// @Success 200 {object} response.Envelope
// @Router /guardians/{id}/students [get]
func (h *ProfileHandler) Children(c *gin.Context) {
	children, err := h.service.Children(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, children)
}
