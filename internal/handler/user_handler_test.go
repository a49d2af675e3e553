package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
)

type fakeUserDirectory struct {
	filter models.UserFilter
	target string
	actor  string
	active bool
	err    error
}

func (f *fakeUserDirectory) List(_ context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	f.filter = filter
	return []models.User{{ID: "emp-1", Role: models.RoleEmployee}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (f *fakeUserDirectory) SetActive(_ context.Context, id, actorID string, active bool) (*models.User, error) {
	f.target, f.actor, f.active = id, actorID, active
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: id, Active: active}, nil
}

func TestUserHandlerListFiltersByRole(t *testing.T) {
	srv := &fakeUserDirectory{}
	handler := NewUserHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/admin/users?role=employee&page=2&page_size=5", nil, adminClaims())

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.filter.Role)
	assert.Equal(t, models.RoleEmployee, *srv.filter.Role)
	assert.Equal(t, 2, srv.filter.Page)
	assert.Equal(t, 5, srv.filter.PageSize)

	c, _ = newTestContext(http.MethodGet, "/admin/users", nil, adminClaims())
	handler.List(c)
	assert.Nil(t, srv.filter.Role)
	assert.Equal(t, 1, srv.filter.Page)
}

func TestUserHandlerActivation(t *testing.T) {
	srv := &fakeUserDirectory{}
	handler := NewUserHandler(srv)

	c, rec := newTestContext(http.MethodPut, "/admin/users/emp-1/deactivate", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "emp-1"}}
	handler.Deactivate(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "emp-1", srv.target)
	assert.Equal(t, "adm-1", srv.actor)
	assert.False(t, srv.active)
	assert.Equal(t, "user deactivated", decodeEnvelope(t, rec).Message)

	c, rec = newTestContext(http.MethodPut, "/admin/users/emp-1/activate", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "emp-1"}}
	handler.Activate(c)
	assert.True(t, srv.active)
	assert.Equal(t, "user activated", decodeEnvelope(t, rec).Message)
}

func TestUserHandlerSelfDeactivationRejected(t *testing.T) {
	handler := NewUserHandler(&fakeUserDirectory{err: appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")})
	c, rec := newTestContext(http.MethodPut, "/admin/users/adm-1/deactivate", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "adm-1"}}

	handler.Deactivate(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.Equal(t, appErrors.ErrForbidden.Code, envelope.Error.Code)
}
