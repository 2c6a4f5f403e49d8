package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordingAudit struct {
	logs []models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, *log)
	return nil
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	tokens := stubValidator{
		"admin":   {ProfileID: "admin-1", Role: models.RoleAdmin},
		"student": {ProfileID: "stu-1", Role: models.RoleStudent},
	}
	chain := append([]gin.HandlerFunc{ResponseMeta(), JWT(tokens)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		actor, _ := Actor(c)
		c.JSON(http.StatusOK, gin.H{"profile_id": actor.ProfileID, "meta": Meta(c)})
	})
	r.GET("/profiles/:id", chain...)
	r.DELETE("/profiles/:id", chain...)
	return r
}

func perform(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/profiles/stu-1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/profiles/stu-1", "bogus").Code)

	w := perform(r, http.MethodGet, "/profiles/stu-1", "student")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		ProfileID string                 `json:"profile_id"`
		Meta      map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "stu-1", body.ProfileID)
	assert.Contains(t, body.Meta, "processing_time_ms")
	assert.NotContains(t, body.Meta, "started_at")
}

func TestRBACAllowsRoleOrSelf(t *testing.T) {
	r := newTestRouter(RBAC(string(models.RoleAdmin), SelfParam))

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/profiles/stu-9", "admin").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/profiles/stu-1", "student").Code)
	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/profiles/stu-9", "student").Code)
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	audit := &recordingAudit{}
	r := newTestRouter(RequireRoles(models.RoleAdmin), Audit(audit, nil, "PROFILE_DELETE", "profiles"))

	perform(r, http.MethodDelete, "/profiles/stu-1", "student")
	assert.Empty(t, audit.logs)

	perform(r, http.MethodDelete, "/profiles/stu-1", "admin")
	require.Len(t, audit.logs, 1)
	log := audit.logs[0]
	assert.Equal(t, "PROFILE_DELETE", log.Action)
	require.NotNil(t, log.ProfileID)
	assert.Equal(t, "admin-1", *log.ProfileID)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "stu-1", *log.ResourceID)
}

func TestSetCacheHitWithoutResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	SetCacheHit(c, true)
	assert.Equal(t, true, Meta(c)["cache_hit"])
}
