package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type dashboardService interface {
	Student(ctx context.Context, studentID string) (*models.StudentDashboard, bool, error)
	Faculty(ctx context.Context, facultyID string) (*models.FacultyDashboard, bool, error)
	Guardian(ctx context.Context, guardianID string) (*models.GuardianDashboard, bool, error)
	Admin(ctx context.Context) (*models.AdminDashboard, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Mine godoc
// @Summary Landing dashboard for the caller's role
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Mine(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var (
		data   interface{}
		cached bool
		err    error
	)
	ctx := c.Request.Context()
	switch actor.Role {
	case models.RoleStudent:
		data, cached, err = h.service.Student(ctx, actor.ProfileID)
	case models.RoleFaculty:
		data, cached, err = h.service.Faculty(ctx, actor.ProfileID)
	case models.RoleGuardian:
		data, cached, err = h.service.Guardian(ctx, actor.ProfileID)
	case models.RoleAdmin:
		data, cached, err = h.service.Admin(ctx)
	default:
		err = appErrors.Clone(appErrors.ErrForbidden, "no dashboard for this role")
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, data, nil, middleware.Meta(c))
}
