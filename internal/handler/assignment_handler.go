package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type assignmentService interface {
	Create(ctx context.Context, actor models.Actor, req dto.AssignmentRequest) (*models.Assignment, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.AssignmentDetail, error)
	List(ctx context.Context, actor models.Actor, filter models.AssignmentFilter) ([]models.AssignmentDetail, *models.Pagination, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.AssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

type submissionService interface {
	Submit(ctx context.Context, actor models.Actor, assignmentID string, req dto.SubmitRequest) (*models.Submission, error)
	Grade(ctx context.Context, actor models.Actor, id string, req dto.GradeSubmissionRequest) (*models.SubmissionDetail, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.SubmissionDetail, error)
	List(ctx context.Context, actor models.Actor, filter models.SubmissionFilter) ([]models.SubmissionDetail, *models.Pagination, error)
	Materialize(ctx context.Context, actor models.Actor, assignmentID string) (*dto.MaterializeResponse, error)
}

// AssignmentHandler serves assignments and their submissions.
type AssignmentHandler struct {
	assignments assignmentService
	submissions submissionService
}

// NewAssignmentHandler constructs an AssignmentHandler.
func NewAssignmentHandler(assignments assignmentService, submissions submissionService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, submissions: submissions}
}

// List godoc
// @Summary List assignments
// @Description Students only see assignments of courses they are enrolled in
// @Tags Assignments
// @Produce json
// @Param course_id query string false "Course"
// @Param due_after query string false "RFC3339 lower bound"
// @Param due_before query string false "RFC3339 upper bound"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p := parseList(c)
	filter := models.AssignmentFilter{
		CourseID:  c.Query("course_id"),
		StudentID: c.Query("student_id"),
		Page:      p.Page,
		PageSize:  p.PageSize,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
	}
	var err error
	if filter.DueAfter, err = parseTimeQuery(c, "due_after"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.DueBefore, err = parseTimeQuery(c, "due_before"); err != nil {
		response.Error(c, err)
		return
	}
	items, page, err := h.assignments.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	a, err := h.assignments.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// Create godoc
// @Summary Create assignment
// @Description Creates a not_submitted row for each enrolled student and notifies them
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.AssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.AssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	a, err := h.assignments.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, a)
}

// Update godoc
// @Summary Update assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.AssignmentRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.AssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	a, err := h.assignments.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.assignments.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit work
// @Description Creates or replaces the caller's submission; late work is accepted and flagged
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.SubmitRequest true "Submission"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/submissions [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.SubmitRequest
	if !bindJSON(c, &req, "invalid submission payload") {
		return
	}
	sub, err := h.submissions.Submit(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

// Materialize godoc
// @Summary Create missing placeholder submissions
// @Tags Submissions
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/submissions/materialize [post]
func (h *AssignmentHandler) Materialize(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	res, err := h.submissions.Materialize(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// ListSubmissions godoc
// @Summary List submissions
// @Description Students see their own; guardians must pass student_id of a linked child
// @Tags Submissions
// @Produce json
// @Param assignment_id query string false "Assignment"
// @Param course_id query string false "Course"
// @Param student_id query string false "Student"
// @Param status query string false "Status"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p := parseList(c)
	filter := models.SubmissionFilter{
		AssignmentID: c.Query("assignment_id"),
		StudentID:    c.Query("student_id"),
		CourseID:     c.Query("course_id"),
		Status:       models.SubmissionStatus(strings.ToLower(c.Query("status"))),
		Page:         p.Page,
		PageSize:     p.PageSize,
		SortBy:       p.SortBy,
		SortOrder:    p.SortOrder,
	}
	items, page, err := h.submissions.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// GetSubmission godoc
// @Summary Get submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *AssignmentHandler) GetSubmission(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	sub, err := h.submissions.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

// GradeSubmission godoc
// @Summary Grade a submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.GradeSubmissionRequest true "Score and feedback"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/grade [put]
func (h *AssignmentHandler) GradeSubmission(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.GradeSubmissionRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	sub, err := h.submissions.Grade(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, name+" must be RFC3339")
	}
	return &t, nil
}
