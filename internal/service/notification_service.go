package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type notificationRepository interface {
	CreateMany(ctx context.Context, items []models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	Delete(ctx context.Context, id, recipientID string) error
}

type rosterSource interface {
	ActiveStudentIDs(ctx context.Context, courseID string) ([]string, error)
	IsFacultyAssigned(ctx context.Context, facultyID, courseID string) (bool, error)
}

// NotificationService stores inbox messages. Delivery beyond the inbox is out of scope.
type NotificationService struct {
	repo      notificationRepository
	roster    rosterSource
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, roster rosterSource, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, roster: roster, cache: cache, validator: validate, logger: logger}
}

// Send stores a message for one recipient or for a course's enrolled students.
func (s *NotificationService) Send(ctx context.Context, actor models.Actor, req dto.SendNotificationRequest) (*dto.SendNotificationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid notification payload")
	}
	recipients := []string{req.RecipientID}
	if req.CourseID != "" {
		if err := requireCourseStaff(ctx, s.roster, actor, req.CourseID); err != nil {
			return nil, err
		}
		ids, err := s.roster.ActiveStudentIDs(ctx, req.CourseID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load course roster")
		}
		recipients = ids
	}
	sender := actor.ProfileID
	items := buildNotifications(&sender, recipients, req.Title, req.Message)
	if len(items) == 0 {
		return &dto.SendNotificationResponse{}, nil
	}
	if err := s.repo.CreateMany(ctx, items); err != nil {
		return nil, repoError(err, "recipient", "failed to store notifications")
	}
	s.cache.InvalidateDashboards(ctx)
	return &dto.SendNotificationResponse{Delivered: len(items)}, nil
}

// Notify stores system messages; failures are logged and swallowed.
func (s *NotificationService) Notify(ctx context.Context, senderID *string, recipients []string, title, message string) {
	if s == nil {
		return
	}
	items := buildNotifications(senderID, recipients, title, message)
	if len(items) == 0 {
		return
	}
	if err := s.repo.CreateMany(ctx, items); err != nil {
		s.logger.Warn("failed to store notification", zap.String("title", title), zap.Int("recipients", len(items)), zap.Error(err))
		return
	}
	s.cache.InvalidateDashboards(ctx)
}

// List returns the recipient's inbox.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list notifications")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// MarkRead marks one message read.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id string) error {
	if err := s.repo.MarkRead(ctx, id, recipientID); err != nil {
		return repoError(err, "notification", "failed to mark notification read")
	}
	s.cache.InvalidateDashboards(ctx)
	return nil
}

// MarkAllRead marks the whole inbox read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to mark notifications read")
	}
	if n > 0 {
		s.cache.InvalidateDashboards(ctx)
	}
	return n, nil
}

// UnreadCount returns the recipient's unread badge count.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	n, err := s.repo.UnreadCount(ctx, recipientID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to count notifications")
	}
	return n, nil
}

// Delete removes a message from the recipient's inbox.
func (s *NotificationService) Delete(ctx context.Context, recipientID, id string) error {
	if err := s.repo.Delete(ctx, id, recipientID); err != nil {
		return repoError(err, "notification", "failed to delete notification")
	}
	s.cache.InvalidateDashboards(ctx)
	return nil
}

func buildNotifications(senderID *string, recipients []string, title, message string) []models.Notification {
	seen := make(map[string]struct{}, len(recipients))
	items := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, models.Notification{SenderID: senderID, RecipientID: id, Title: title, Message: message})
	}
	return items
}
