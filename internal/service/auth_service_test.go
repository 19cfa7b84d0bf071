package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/repository/memrepo"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/auth"
)

const testPassword = "correct horse battery"

func newAuthService(t *testing.T) (*AuthService, *memrepo.UserRepository, *auth.JWTManager) {
	t.Helper()
	m := testMetrics()
	audit, _ := testAudit(t, m)
	users := memrepo.NewUserRepository()
	jwtm := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-that-is-long-enough-for-hs256",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "consultrec-test",
	})
	return NewAuthService(users, jwtm, audit, zap.NewNop()), users, jwtm
}

func TestLogin_IssuesLocationClaims(t *testing.T) {
	svc, _, jwtm := newAuthService(t)
	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "Dr.Who@Example.org",
		Password: testPassword,
		FullName: "Dr Who",
		Role:     domain.RoleDoctor,
		Location: "APH",
	})
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), "dr.who@example.org", testPassword, "10.0.0.1")
	require.NoError(t, err)

	claims, err := jwtm.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDoctor, claims.Role)
	assert.Equal(t, "APH", claims.Location)

	refreshed, err := svc.RefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	svc, users, _ := newAuthService(t)
	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email: "admin@example.org", Password: testPassword, FullName: "Admin", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)

	for i := 0; i < domain.MaxFailedLoginAttempts; i++ {
		_, err := svc.Login(context.Background(), "admin@example.org", "wrong password!", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err = svc.Login(context.Background(), "admin@example.org", testPassword, "")
	assert.ErrorIs(t, err, ErrAccountLocked)

	stored, err := users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLocked())
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newAuthService(t)
	_, err := svc.Login(context.Background(), "ghost@example.org", testPassword, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, _, _ := newAuthService(t)
	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email: "a@example.org", Password: testPassword, FullName: "A", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)
	pair, err := svc.Login(context.Background(), "a@example.org", testPassword, "")
	require.NoError(t, err)

	_, err = svc.RefreshToken(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Email: "nope", Password: "short", Role: "nurse"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)

	in := CreateUserInput{Email: "dup@example.org", Password: testPassword, FullName: "Dup", Role: domain.RoleDoctor}
	_, err = svc.CreateUser(context.Background(), in)
	require.NoError(t, err)
	_, err = svc.CreateUser(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrUserExists)
}
