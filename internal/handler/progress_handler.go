package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type progressService interface {
	StudentProgress(ctx context.Context, actor models.Actor, studentID string) (*models.StudentProgress, error)
	Gradebook(ctx context.Context, actor models.Actor, courseID string) (*models.Gradebook, error)
}

// ProgressHandler serves per-student progress and per-course gradebooks.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler constructs a ProgressHandler.
func NewProgressHandler(svc progressService) *ProgressHandler {
	return &ProgressHandler{service: svc}
}

// StudentProgress godoc
// @Summary Student progress
// @Description Completion and averages per course; averages are null when nothing is graded
// @Tags Progress
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/progress [get]
func (h *ProgressHandler) StudentProgress(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	progress, err := h.service.StudentProgress(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, progress)
}

// Gradebook godoc
// @Summary Course gradebook
// @Tags Progress
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/gradebook [get]
func (h *ProgressHandler) Gradebook(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	book, err := h.service.Gradebook(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, book)
}
