package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type reportService interface {
	SaveReport(ctx context.Context, actor models.Actor, req dto.SaveReportRequest) (*models.ReportDetail, error)
	GetReport(ctx context.Context, actor models.Actor, id string) (*models.ReportDetail, error)
	GetReportByKey(ctx context.Context, actor models.Actor, key models.ReportKey) (*models.ReportDetail, error)
	ListReports(ctx context.Context, actor models.Actor, filter models.ReportFilter) ([]models.ReportDetail, *models.Pagination, error)
	StudentReports(ctx context.Context, actor models.Actor, studentID string) ([]models.ReportDetail, error)
	DeleteReport(ctx context.Context, actor models.Actor, id string) error
	RemoveGrade(ctx context.Context, actor models.Actor, reportID, gradeID string) (*models.ReportDetail, error)
	ClassRanking(ctx context.Context, q dto.RankingQuery) ([]models.RankingEntry, error)
	RankSubjects(ctx context.Context, actor models.Actor, q dto.RankingQuery) (*dto.RankSubjectsResponse, error)
}

type exportService interface {
	CreateJob(ctx context.Context, actor models.Actor, req dto.ExportRequest) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, actor models.Actor, id string) (*dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ReportHandler exposes report cards, rankings and report card exports.
type ReportHandler struct {
	reports reportService
	exports exportService
	logger  *zap.Logger
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, exports exportService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, exports: exports, logger: logger}
}

// Save godoc
// @Summary Save a report with its grades
// @Description Upserts by (student_id, term, academic_year) and replaces the grade set in one transaction
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.SaveReportRequest true "Report"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Save(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.SaveReportRequest
	if !bindJSON(c, &req, "invalid report payload") {
		return
	}
	report, err := h.reports.SaveReport(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// List godoc
// @Summary List reports
// @Description Students see their own; guardians see their children's
// @Tags Reports
// @Produce json
// @Param student_id query string false "Student"
// @Param term query string false "Term"
// @Param academic_year query string false "Academic year"
// @Param class_year query string false "Class year"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p := parseList(c)
	filter := models.ReportFilter{
		StudentID:    c.Query("student_id"),
		Term:         c.Query("term"),
		AcademicYear: c.Query("academic_year"),
		ClassYear:    c.Query("class_year"),
		Page:         p.Page,
		PageSize:     p.PageSize,
		SortBy:       p.SortBy,
		SortOrder:    p.SortOrder,
	}
	items, page, err := h.reports.ListReports(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// Lookup godoc
// @Summary Find a report by its key
// @Tags Reports
// @Produce json
// @Param student_id query string true "Student"
// @Param term query string true "Term"
// @Param academic_year query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /reports/lookup [get]
func (h *ReportHandler) Lookup(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key := models.ReportKey{StudentID: c.Query("student_id"), Term: c.Query("term"), AcademicYear: c.Query("academic_year")}
	report, err := h.reports.GetReportByKey(c.Request.Context(), actor, key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Get godoc
// @Summary Get report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	report, err := h.reports.GetReport(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// StudentReports godoc
// @Summary A student's reports with grades
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/reports [get]
func (h *ReportHandler) StudentReports(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	reports, err := h.reports.StudentReports(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reports)
}

// Delete godoc
// @Summary Delete report
// @Tags Reports
// @Param id path string true "Report ID"
// @Success 204
// @Router /reports/{id} [delete]
func (h *ReportHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.reports.DeleteReport(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveGrade godoc
// @Summary Remove one subject grade
// @Description The report's totals are recomputed from the remaining grades
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Param grade_id path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/grades/{grade_id} [delete]
func (h *ReportHandler) RemoveGrade(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	report, err := h.reports.RemoveGrade(c.Request.Context(), actor, c.Param("id"), c.Param("grade_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Ranking godoc
// @Summary Class ranking for a term
// @Tags Reports
// @Produce json
// @Param term query string true "Term"
// @Param academic_year query string true "Academic year"
// @Param class_year query string true "Class year"
// @Success 200 {object} response.Envelope
// @Router /reports/ranking [get]
func (h *ReportHandler) Ranking(c *gin.Context) {
	var q dto.RankingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid ranking query"))
		return
	}
	entries, err := h.reports.ClassRanking(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// RankSubjects godoc
// @Summary Write subject positions for a class
// @Tags Reports
// @Produce json
// @Param term query string true "Term"
// @Param academic_year query string true "Academic year"
// @Param class_year query string true "Class year"
// @Success 200 {object} response.Envelope
// @Router /reports/ranking/subjects [post]
func (h *ReportHandler) RankSubjects(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var q dto.RankingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid ranking query"))
		return
	}
	res, err := h.reports.RankSubjects(c.Request.Context(), actor, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Export godoc
// @Summary Queue a report card export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ReportHandler) Export(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.ExportRequest
	if !bindJSON(c, &req, "invalid export payload") {
		return
	}
	req.Format = models.ExportFormat(strings.ToLower(string(req.Format)))
	job, err := h.exports.CreateJob(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	status, err := h.exports.GetStatus(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Download godoc
// @Summary Download a finished export
// @Description The signed token is the credential; no bearer token is required
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to stat export file"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, nil)
	h.logger.Debug("export downloaded", zap.String("file", download.Filename))
}
