package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

func newAuthFixture(t *testing.T, status models.ProfileStatus) (*AuthService, *mockProfileRepo) {
	t.Helper()
	hash, err := HashPassword("secret-pass")
	require.NoError(t, err)
	repo := newMockProfileRepo(&models.Profile{
		ID:           "stu-1",
		Email:        "ama@school.test",
		PasswordHash: hash,
		FullName:     "Ama Mensah",
		Role:         models.RoleStudent,
		Status:       status,
	})
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "school-portal",
		SingleSession:      true,
	})
	return svc, repo
}

func TestLoginIssuesValidTokens(t *testing.T) {
	svc, repo := newAuthFixture(t, models.ProfileStatusActive)

	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "ama@school.test", Password: "secret-pass", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, int64(900), session.ExpiresIn)
	assert.Equal(t, models.RoleStudent, session.Profile.Role)

	claims, err := svc.ValidateToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.ProfileID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	require.Len(t, repo.tokens, 1)
	for hash := range repo.tokens {
		assert.Equal(t, hashToken(session.RefreshToken), hash)
	}
	assert.Equal(t, []string{"stu-1"}, repo.revokedAll)
	assert.Contains(t, repo.lastLogin, "stu-1")
	require.Len(t, repo.audit.logs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.audit.logs[0].Action)
}

func TestLoginRejectsBadPasswordAndInactiveAccounts(t *testing.T) {
	svc, _ := newAuthFixture(t, models.ProfileStatusActive)
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ama@school.test", Password: "wrong-pass"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@school.test", Password: "secret-pass"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	inactive, _ := newAuthFixture(t, models.ProfileStatusInactive)
	_, err = inactive.Login(context.Background(), models.LoginRequest{Email: "ama@school.test", Password: "secret-pass"})
	assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount))
}

func TestRefreshTokenRotates(t *testing.T) {
	svc, repo := newAuthFixture(t, models.ProfileStatusActive)
	ctx := context.Background()
	first, err := svc.Login(ctx, models.LoginRequest{Email: "ama@school.test", Password: "secret-pass"})
	require.NoError(t, err)

	second, err := svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.True(t, repo.tokens[hashToken(first.RefreshToken)].Revoked)

	_, err = svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: first.RefreshToken})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestLogoutChecksOwnership(t *testing.T) {
	svc, repo := newAuthFixture(t, models.ProfileStatusActive)
	ctx := context.Background()
	session, err := svc.Login(ctx, models.LoginRequest{Email: "ama@school.test", Password: "secret-pass"})
	require.NoError(t, err)

	err = svc.Logout(ctx, session.RefreshToken, "someone-else", "", "")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.Logout(ctx, session.RefreshToken, "stu-1", "", ""))
	assert.True(t, repo.tokens[hashToken(session.RefreshToken)].Revoked)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, repo := newAuthFixture(t, models.ProfileStatusActive)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, "stu-1", models.ChangePasswordRequest{OldPassword: "bad", NewPassword: "new-secret-pass"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.ChangePassword(ctx, "stu-1", models.ChangePasswordRequest{OldPassword: "secret-pass", NewPassword: "new-secret-pass"}))
	_, err = svc.Login(ctx, models.LoginRequest{Email: "ama@school.test", Password: "new-secret-pass"})
	assert.NoError(t, err)
	assert.Contains(t, repo.revokedAll, "stu-1")
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newAuthFixture(t, models.ProfileStatusActive)
	session, err := svc.Login(context.Background(), models.LoginRequest{Email: "ama@school.test", Password: "secret-pass"})
	require.NoError(t, err)

	other := NewAuthService(newMockProfileRepo(), nil, nil, AuthConfig{AccessTokenSecret: "other-secret", Issuer: "school-portal"})
	_, err = other.ValidateToken(session.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
