package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
)

type fakeAuthService struct {
	login      models.LoginRequest
	registered models.RegisterRequest
	changedFor string
	err        error
}

func (f *fakeAuthService) Register(_ context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	f.registered = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.UserInfo{ID: "stu-9", Username: req.Username, Role: req.Role, Profile: req.Profile}, nil
}

func (f *fakeAuthService) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.login = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600}, nil
}

func (f *fakeAuthService) ChangePassword(_ context.Context, userID string, _ models.ChangePasswordRequest) error {
	f.changedFor = userID
	return f.err
}

type fakeProfileService struct {
	updated models.UpdateProfileRequest
}

func (f *fakeProfileService) Get(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Username: "asha", Role: models.RoleStudent}, nil
}

func (f *fakeProfileService) UpdateProfile(_ context.Context, id string, req models.UpdateProfileRequest) (*models.User, error) {
	f.updated = req
	return &models.User{ID: id, Profile: req.Profile}, nil
}

func TestAuthHandlerRegister(t *testing.T) {
	srv := &fakeAuthService{}
	handler := NewAuthHandler(srv, &fakeProfileService{})
	c, rec := newTestContext(http.MethodPost, "/auth/register", map[string]interface{}{
		"username": "asha",
		"password": "secret1",
		"role":     "STUDENT",
		"profile":  map[string]string{"name": "Asha Rao"},
	}, nil)

	handler.Register(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "asha", srv.registered.Username)
	assert.Equal(t, "Asha Rao", srv.registered.Profile.Name)
	assert.True(t, decodeEnvelope(t, rec).Success)
}

func TestAuthHandlerLoginCapturesClientDetails(t *testing.T) {
	srv := &fakeAuthService{}
	handler := NewAuthHandler(srv, &fakeProfileService{})
	c, rec := newTestContext(http.MethodPost, "/auth/login", map[string]string{
		"username": "asha",
		"password": "secret1",
		"role":     "STUDENT",
	}, nil)
	c.Request.Header.Set("User-Agent", "test-agent")

	handler.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleStudent, srv.login.Role)
	assert.Equal(t, "test-agent", srv.login.UserAgent)
	assert.NotEmpty(t, srv.login.IP)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{err: appErrors.ErrInvalidCredentials}, &fakeProfileService{})
	c, rec := newTestContext(http.MethodPost, "/auth/login", map[string]string{"username": "asha", "password": "wrong"}, nil)

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerProfileEndpoints(t *testing.T) {
	profiles := &fakeProfileService{}
	handler := NewAuthHandler(&fakeAuthService{}, profiles)

	c, rec := newTestContext(http.MethodGet, "/me", nil, nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/me", nil, studentClaims())
	handler.Me(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodPut, "/me/profile", map[string]interface{}{
		"profile": map[string]string{"name": "Asha R", "branch": "CSE"},
	}, studentClaims())
	handler.UpdateProfile(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CSE", profiles.updated.Profile.Branch)
}

func TestAuthHandlerChangePassword(t *testing.T) {
	srv := &fakeAuthService{}
	handler := NewAuthHandler(srv, &fakeProfileService{})
	c, rec := newTestContext(http.MethodPut, "/me/password", map[string]string{
		"old_password": "secret1",
		"new_password": "secret2",
	}, studentClaims())

	handler.ChangePassword(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-1", srv.changedFor)
}
