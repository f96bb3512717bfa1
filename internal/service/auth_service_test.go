package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hamrah-edu/school-portal-api/internal/models"
	appErrors "github.com/hamrah-edu/school-portal-api/pkg/errors"
)

type mockAuthStore struct {
	users   map[string]*models.User
	tokens  map[string]*models.RefreshToken
	revoked []string
}

func (m *mockAuthStore) FindByNationalID(ctx context.Context, nationalID string) (*models.User, error) {
	for _, u := range m.users {
		if u.NationalID == nationalID {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthStore) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.tokens == nil {
		m.tokens = map[string]*models.RefreshToken{}
	}
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAuthStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthStore) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	for _, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func authFixture(t *testing.T) (*mockAuthStore, *AuthService) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &mockAuthStore{users: map[string]*models.User{
		"s1": {ID: "s1", NationalID: "111", FirstName: "Sara", LastName: "Ahmadi", PasswordHash: string(hash), Role: models.RoleStudent, Slug: "sara-ahmadi", Active: true},
		"t1": {ID: "t1", NationalID: "222", FirstName: "Hamid", LastName: "Moradi", PasswordHash: string(hash), Role: models.RoleTeacher, Slug: "hamid-moradi", Active: true},
	}}
	svc := NewAuthService(store, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "school-portal",
	})
	return store, svc
}

func TestAuthServiceLoginStudentGateway(t *testing.T) {
	_, svc := authFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{NationalID: "111", Password: "secret-pass"}, models.RoleStudent)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Sara Ahmadi", resp.User.FullName)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.UserID)
	assert.Equal(t, "sara-ahmadi", claims.Slug)
}

func TestAuthServiceGatewayRejectsWrongRole(t *testing.T) {
	_, svc := authFixture(t)

	// A student credential at the teacher gateway looks like a bad password.
	_, err := svc.Login(context.Background(), models.LoginRequest{NationalID: "111", Password: "secret-pass"}, models.RoleTeacher)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{NationalID: "222", Password: "secret-pass"}, models.RoleStudent)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	_, svc := authFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{NationalID: "111", Password: "wrong"}, models.RoleStudent)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	store, svc := authFixture(t)
	store.users["s1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{NationalID: "111", Password: "secret-pass"}, models.RoleStudent)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	store, svc := authFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{NationalID: "111", Password: "secret-pass"}, models.RoleStudent)
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.NotEmpty(t, store.revoked)

	// The old token is revoked and cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLogout(t *testing.T) {
	store, svc := authFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{NationalID: "111", Password: "secret-pass"}, models.RoleStudent)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "s1"))
	assert.Len(t, store.revoked, 1)

	err = svc.Logout(context.Background(), login.RefreshToken, "t1")
	require.Error(t, err)
}
