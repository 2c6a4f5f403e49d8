package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

func newNotificationFixture() (*NotificationService, *mockNotificationRepo) {
	repo := &mockNotificationRepo{unread: map[string]int{"stu-1": 3}}
	roster := &mockMembership{
		assigned: map[string]bool{"fac-1|course-1": true},
		roster:   map[string][]string{"course-1": {"stu-1", "stu-2", "stu-1", ""}},
	}
	return NewNotificationService(repo, roster, nil, nil, nil), repo
}

func TestSendToSingleRecipient(t *testing.T) {
	svc, repo := newNotificationFixture()

	resp, err := svc.Send(context.Background(), adminActor, dto.SendNotificationRequest{RecipientID: "stu-1", Title: "Fees", Message: "Due Friday"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Delivered)
	require.Len(t, repo.created, 1)
	require.NotNil(t, repo.created[0].SenderID)
	assert.Equal(t, "admin-1", *repo.created[0].SenderID)
}

func TestSendToCourseDeduplicatesRoster(t *testing.T) {
	svc, repo := newNotificationFixture()

	resp, err := svc.Send(context.Background(), facultyActor, dto.SendNotificationRequest{CourseID: "course-1", Title: "Quiz", Message: "Tomorrow"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Delivered)
	assert.Len(t, repo.created, 2)
}

func TestSendToCourseRequiresStaff(t *testing.T) {
	svc, repo := newNotificationFixture()
	outsider := models.Actor{ProfileID: "fac-9", Role: models.RoleFaculty}

	_, err := svc.Send(context.Background(), outsider, dto.SendNotificationRequest{CourseID: "course-1", Title: "Quiz", Message: "Tomorrow"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, repo.created)
}

func TestSendRequiresRecipientOrCourse(t *testing.T) {
	svc, _ := newNotificationFixture()
	_, err := svc.Send(context.Background(), adminActor, dto.SendNotificationRequest{Title: "Hi", Message: "there"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestNotifySwallowsStorageErrors(t *testing.T) {
	svc, repo := newNotificationFixture()
	repo.err = errors.New("db down")
	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), nil, []string{"stu-1"}, "t", "m")
	})

	var nilSvc *NotificationService
	assert.NotPanics(t, func() {
		nilSvc.Notify(context.Background(), nil, []string{"stu-1"}, "t", "m")
	})
}

func TestInboxOperations(t *testing.T) {
	svc, repo := newNotificationFixture()
	ctx := context.Background()
	repo.created = []models.Notification{{ID: "n-1", RecipientID: "stu-1"}}

	items, page, err := svc.List(ctx, models.NotificationFilter{RecipientID: "stu-1"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)

	count, err := svc.UnreadCount(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.NoError(t, svc.MarkRead(ctx, "stu-1", "n-1"))
	assert.True(t, errors.Is(svc.MarkRead(ctx, "stu-2", "n-1"), appErrors.ErrNotFound))

	n, err := svc.MarkAllRead(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.True(t, errors.Is(svc.Delete(ctx, "stu-2", "n-1"), appErrors.ErrNotFound))
}
