package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sprs-api/internal/models"
	"github.com/noah-isme/sprs-api/pkg/response"
)

type userDirectoryService interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	SetActive(ctx context.Context, id, actorID string, active bool) (*models.User, error)
}

// UserHandler exposes the admin user directory.
type UserHandler struct {
	service userDirectoryService
}

// NewUserHandler constructs the handler.
func NewUserHandler(svc userDirectoryService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description Lists users of a role, or every active user when no role is given
// @Tags Admin
// @Produce json
// @Param role query string false "Role filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	if _, ok := requireClaims(c); !ok {
		return
	}
	filter := models.UserFilter{}
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role := models.UserRole(strings.ToUpper(raw))
		filter.Role = &role
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	pageSize, err := queryInt(c, "page_size", 20)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.Page = page
	filter.PageSize = pageSize

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "users", users, pagination)
}

// Activate godoc
// @Summary Activate a user
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /admin/users/{id}/activate [put]
func (h *UserHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate godoc
// @Summary Deactivate a user
// @Tags Admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /admin/users/{id}/deactivate [put]
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	user, err := h.service.SetActive(c.Request.Context(), c.Param("id"), claims.UserID, active)
	if err != nil {
		response.Error(c, err)
		return
	}
	message := "user deactivated"
	if active {
		message = "user activated"
	}
	response.OK(c, message, user)
}
