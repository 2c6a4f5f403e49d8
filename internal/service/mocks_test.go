package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sync"
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

var (
	adminActor    = models.Actor{ProfileID: "admin-1", Role: models.RoleAdmin}
	facultyActor  = models.Actor{ProfileID: "fac-1", Role: models.RoleFaculty}
	studentActor  = models.Actor{ProfileID: "stu-1", Role: models.RoleStudent}
	guardianActor = models.Actor{ProfileID: "guard-1", Role: models.RoleGuardian}
)

type mockMembership struct {
	enrolled map[string]bool
	assigned map[string]bool
	roster   map[string][]string
}

func (m *mockMembership) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	return m.enrolled[studentID+"|"+courseID], nil
}

func (m *mockMembership) IsFacultyAssigned(ctx context.Context, facultyID, courseID string) (bool, error) {
	return m.assigned[facultyID+"|"+courseID], nil
}

func (m *mockMembership) ActiveStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	return m.roster[courseID], nil
}

type mockGuardians struct {
	children map[string][]models.StudentDetail
}

func (m *mockGuardians) IsGuardianOf(ctx context.Context, guardianID, studentID string) (bool, error) {
	for _, c := range m.children[guardianID] {
		if c.ProfileID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockGuardians) ListByGuardian(ctx context.Context, guardianID string) ([]models.StudentDetail, error) {
	return m.children[guardianID], nil
}

type mockAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (m *mockAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

type mockNotificationRepo struct {
	mu      sync.Mutex
	created []models.Notification
	unread  map[string]int
	err     error
}

func (m *mockNotificationRepo) CreateMany(ctx context.Context, items []models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, items...)
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var out []models.Notification
	for _, n := range m.created {
		if n.RecipientID == filter.RecipientID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, recipientID string) error {
	for _, n := range m.created {
		if n.ID == id && n.RecipientID == recipientID {
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	n := m.unread[recipientID]
	delete(m.unread, recipientID)
	return int64(n), nil
}

func (m *mockNotificationRepo) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return m.unread[recipientID], nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id, recipientID string) error {
	return m.MarkRead(ctx, id, recipientID)
}

type mockProfileRepo struct {
	mu            sync.Mutex
	profiles      map[string]*models.Profile
	created       []*models.Profile
	createdRoles  []string
	tokens        map[string]*models.RefreshToken
	revokedAll    []string
	statusUpdates map[string]models.ProfileStatus
	lastLogin     map[string]time.Time
	audit         mockAudit
	createErr     error
}

func newMockProfileRepo(profiles ...*models.Profile) *mockProfileRepo {
	m := &mockProfileRepo{
		profiles:      map[string]*models.Profile{},
		tokens:        map[string]*models.RefreshToken{},
		statusUpdates: map[string]models.ProfileStatus{},
		lastLogin:     map[string]time.Time{},
	}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	for _, p := range m.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error) {
	var out []models.Profile
	for _, p := range m.profiles {
		if filter.Role != nil && p.Role != *filter.Role {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProfileRepo) CreateWithExtension(ctx context.Context, profile *models.Profile, student *models.Student, faculty *models.Faculty) error {
	if m.createErr != nil {
		return m.createErr
	}
	if profile.ID == "" {
		profile.ID = "new-profile"
	}
	switch {
	case student != nil:
		m.createdRoles = append(m.createdRoles, "student")
	case faculty != nil:
		m.createdRoles = append(m.createdRoles, "faculty")
	}
	m.created = append(m.created, profile)
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) Update(ctx context.Context, profile *models.Profile) error {
	if _, ok := m.profiles[profile.ID]; !ok {
		return sql.ErrNoRows
	}
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) UpdateStatus(ctx context.Context, id string, status models.ProfileStatus) error {
	if _, ok := m.profiles[id]; !ok {
		return sql.ErrNoRows
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *mockProfileRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.profiles[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.profiles, id)
	return nil
}

func (m *mockProfileRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func (m *mockProfileRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	p, ok := m.profiles[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.PasswordHash = passwordHash
	return nil
}

func (m *mockProfileRepo) RevokeProfileRefreshTokens(ctx context.Context, profileID string) error {
	m.revokedAll = append(m.revokedAll, profileID)
	for _, t := range m.tokens {
		if t.ProfileID == profileID {
			t.Revoked = true
		}
	}
	return nil
}

func (m *mockProfileRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = "rt-" + token.TokenHash[:8]
	}
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *mockProfileRepo) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[tokenHash]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockProfileRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return m.audit.CreateAuditLog(ctx, log)
}

// memoryCache is an in-process CacheRepository.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	raw, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *memoryCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.data))
	for k := range c.data {
		out = append(out, k)
	}
	return out
}
