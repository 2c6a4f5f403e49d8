package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/grading"
)

// NoGrade is the overall grade of a report without subject rows.
const NoGrade = "N/A"

type reportRepository interface {
	UpsertWithGrades(ctx context.Context, report *models.Report, grades []models.Grade) error
	FindByID(ctx context.Context, id string) (*models.ReportDetail, error)
	FindByKey(ctx context.Context, key models.ReportKey) (*models.Report, error)
	ListGrades(ctx context.Context, reportID string) ([]models.GradeDetail, error)
	ListGradesByReport(ctx context.Context, reportIDs []string) (map[string][]models.GradeDetail, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, int, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.ReportDetail, error)
	Delete(ctx context.Context, id string) error
	RemoveGrade(ctx context.Context, reportID, gradeID string, aggregate func(totals []float64) models.ReportAggregate) (models.ReportAggregate, error)
	ClassRanking(ctx context.Context, term, academicYear, classYear string) ([]models.RankingEntry, error)
	RankSubjects(ctx context.Context, term, academicYear, classYear string) (int64, error)
}

type guardianRoster interface {
	guardianChecker
	ListByGuardian(ctx context.Context, guardianID string) ([]models.StudentDetail, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ReportService writes and reads term report cards.
type ReportService struct {
	repo      reportRepository
	guardians guardianRoster
	access    studentAccess
	audit     auditWriter
	policy    grading.Policy
	metrics   *MetricsService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportRepository, guardians guardianRoster, audit auditWriter, policy grading.Policy, metrics *MetricsService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:      repo,
		guardians: guardians,
		access:    studentAccess{guardians: guardians},
		audit:     audit,
		policy:    policy,
		metrics:   metrics,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// SaveReport upserts the report for (student, term, academic year) and
// replaces its grades. Totals, letter grades and remarks are derived here.
// A failed write leaves the previously stored grades untouched.
func (s *ReportService) SaveReport(ctx context.Context, actor models.Actor, req dto.SaveReportRequest) (*models.ReportDetail, error) {
	if err := requireReportWriter(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid report payload")
	}
	grades, err := s.computeGrades(req.Grades)
	if err != nil {
		return nil, err
	}
	agg := s.aggregate(totals(grades))

	report := &models.Report{
		StudentID:          req.StudentID,
		Term:               strings.TrimSpace(req.Term),
		AcademicYear:       strings.TrimSpace(req.AcademicYear),
		ClassYear:          req.ClassYear,
		TotalScore:         agg.TotalScore,
		AverageScore:       agg.AverageScore,
		OverallGrade:       agg.OverallGrade,
		Attendance:         req.Attendance,
		Conduct:            req.Conduct,
		Interest:           req.Interest,
		NextClass:          req.NextClass,
		TeacherRemarks:     req.TeacherRemarks,
		PrincipalSignature: req.PrincipalSignature,
		ReopeningDate:      req.ReopeningDate,
	}
	if err := s.repo.UpsertWithGrades(ctx, report, grades); err != nil {
		s.metrics.RecordReportSave(false)
		if errors.Is(err, repository.ErrReference) {
			return nil, appErrors.Invalid(err, "unknown student or subject")
		}
		s.logger.Error("report save rolled back",
			zap.String("student_id", report.StudentID),
			zap.String("term", report.Term),
			zap.String("academic_year", report.AcademicYear),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrReportSaveFailed.Code, appErrors.ErrReportSaveFailed.Status, appErrors.ErrReportSaveFailed.Message)
	}
	s.metrics.RecordReportSave(true)
	s.auditReport(ctx, actor.ProfileID, models.AuditActionReportSave, report.ID, req)
	s.cache.InvalidateDashboards(ctx)

	detail := &models.ReportDetail{Report: *report, Grades: make([]models.GradeDetail, len(grades))}
	for i, g := range grades {
		detail.Grades[i] = models.GradeDetail{Grade: g}
	}
	return detail, nil
}

// GetReport returns a report with grades if the actor may see its student.
func (s *ReportService) GetReport(ctx context.Context, actor models.Actor, id string) (*models.ReportDetail, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "report", "failed to load report")
	}
	if err := s.access.check(ctx, actor, report.StudentID); err != nil {
		return nil, err
	}
	return report, nil
}

// GetReportByKey looks a report up by its natural key.
func (s *ReportService) GetReportByKey(ctx context.Context, actor models.Actor, key models.ReportKey) (*models.ReportDetail, error) {
	if key.StudentID == "" || key.Term == "" || key.AcademicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id, term and academic_year are required")
	}
	if err := s.access.check(ctx, actor, key.StudentID); err != nil {
		return nil, err
	}
	report, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, repoError(err, "report", "failed to load report")
	}
	return s.GetReport(ctx, actor, report.ID)
}

// ListReports lists reports. Students see their own; guardians see their children's.
func (s *ReportService) ListReports(ctx context.Context, actor models.Actor, filter models.ReportFilter) ([]models.ReportDetail, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.ProfileID
	case models.RoleGuardian:
		children, err := s.guardians.ListByGuardian(ctx, actor.ProfileID)
		if err != nil {
			return nil, nil, appErrors.Internal(err, "failed to load children")
		}
		if len(children) == 0 {
			return []models.ReportDetail{}, pagination(filter.Page, filter.PageSize, 0), nil
		}
		ids := make([]string, len(children))
		for i, c := range children {
			ids[i] = c.ProfileID
		}
		if filter.StudentID != "" && !contains(ids, filter.StudentID) {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this student")
		}
		filter.StudentIDs = ids
	}
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list reports")
	}
	return reports, pagination(filter.Page, filter.PageSize, total), nil
}

// StudentReports returns every report of one student, grades included.
func (s *ReportService) StudentReports(ctx context.Context, actor models.Actor, studentID string) ([]models.ReportDetail, error) {
	if err := s.access.check(ctx, actor, studentID); err != nil {
		return nil, err
	}
	reports, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list reports")
	}
	ids := make([]string, len(reports))
	for i := range reports {
		ids[i] = reports[i].ID
	}
	grades, err := s.repo.ListGradesByReport(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load grades")
	}
	for i := range reports {
		reports[i].Grades = grades[reports[i].ID]
	}
	return reports, nil
}

// DeleteReport removes a report with its grades.
func (s *ReportService) DeleteReport(ctx context.Context, actor models.Actor, id string) error {
	if err := requireReportWriter(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return repoError(err, "report", "failed to delete report")
	}
	s.auditReport(ctx, actor.ProfileID, models.AuditActionReportDelete, id, nil)
	s.cache.InvalidateDashboards(ctx)
	return nil
}

// RemoveGrade hard deletes one subject row and re-aggregates the report.
func (s *ReportService) RemoveGrade(ctx context.Context, actor models.Actor, reportID, gradeID string) (*models.ReportDetail, error) {
	if err := requireReportWriter(actor); err != nil {
		return nil, err
	}
	report, err := s.repo.FindByID(ctx, reportID)
	if err != nil {
		return nil, repoError(err, "report", "failed to load report")
	}
	agg, err := s.repo.RemoveGrade(ctx, reportID, gradeID, s.aggregate)
	if err != nil {
		return nil, repoError(err, "grade", "failed to remove grade")
	}
	s.auditReport(ctx, actor.ProfileID, models.AuditActionGradeRemove, reportID, map[string]string{"grade_id": gradeID})
	s.cache.InvalidateDashboards(ctx)

	grades, err := s.repo.ListGrades(ctx, reportID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load grades")
	}
	report.Grades = grades
	report.TotalScore = agg.TotalScore
	report.AverageScore = agg.AverageScore
	report.OverallGrade = agg.OverallGrade
	return report, nil
}

// ClassRanking returns overall positions for a class and term.
func (s *ReportService) ClassRanking(ctx context.Context, q dto.RankingQuery) ([]models.RankingEntry, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Invalid(err, "term, academic_year and class_year are required")
	}
	rows, err := s.repo.ClassRanking(ctx, q.Term, q.AcademicYear, q.ClassYear)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to rank class")
	}
	return rows, nil
}

// RankSubjects writes per-subject positions for a class and term.
func (s *ReportService) RankSubjects(ctx context.Context, actor models.Actor, q dto.RankingQuery) (*dto.RankSubjectsResponse, error) {
	if err := requireReportWriter(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Invalid(err, "term, academic_year and class_year are required")
	}
	n, err := s.repo.RankSubjects(ctx, q.Term, q.AcademicYear, q.ClassYear)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to rank subjects")
	}
	s.cache.InvalidateDashboards(ctx)
	return &dto.RankSubjectsResponse{Updated: n}, nil
}

func (s *ReportService) computeGrades(inputs []dto.GradeInput) ([]models.Grade, error) {
	seen := make(map[string]struct{}, len(inputs))
	grades := make([]models.Grade, 0, len(inputs))
	for _, in := range inputs {
		if _, dup := seen[in.SubjectID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s appears more than once", in.SubjectID))
		}
		seen[in.SubjectID] = struct{}{}
		if math.IsNaN(in.ClassScore) || math.IsNaN(in.ExamScore) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "scores must be numbers")
		}
		total := grading.SubjectTotal(in.ClassScore, in.ExamScore)
		if total > 100 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class and exam scores for subject %s exceed 100", in.SubjectID))
		}
		grades = append(grades, models.Grade{
			SubjectID:        in.SubjectID,
			ClassScore:       in.ClassScore,
			ExamScore:        in.ExamScore,
			TotalScore:       total,
			Position:         in.Position,
			Grade:            s.policy.LetterGrade(total),
			Remark:           s.policy.Remark(total),
			TeacherSignature: in.TeacherSignature,
		})
	}
	return grades, nil
}

// aggregate derives the report header: the sum of subject totals, their
// mean, and the letter grade of that mean.
func (s *ReportService) aggregate(subjectTotals []float64) models.ReportAggregate {
	agg := models.ReportAggregate{OverallGrade: NoGrade}
	for _, t := range subjectTotals {
		agg.TotalScore += t
	}
	agg.TotalScore = grading.Round(agg.TotalScore)
	if mean := grading.Mean(subjectTotals); mean.Valid {
		agg.AverageScore = mean.Value
		agg.OverallGrade = s.policy.LetterGrade(mean.Value)
	}
	return agg
}

func (s *ReportService) auditReport(ctx context.Context, actorID, action, reportID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	var values []byte
	if payload != nil {
		values, _ = json.Marshal(payload)
	}
	actor := actorID
	target := reportID
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		ProfileID:  &actor,
		Action:     action,
		Resource:   "report",
		ResourceID: &target,
		NewValues:  values,
	}); err != nil {
		s.logger.Warn("failed to record report audit log", zap.String("action", action), zap.Error(err))
	}
}

func requireReportWriter(actor models.Actor) error {
	if actor.Role == models.RoleAdmin || actor.Role == models.RoleFaculty {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only faculty and admins manage reports")
}

func totals(grades []models.Grade) []float64 {
	out := make([]float64, len(grades))
	for i, g := range grades {
		out[i] = g.TotalScore
	}
	return out
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
