package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sprs-api/internal/models"
	"github.com/noah-isme/sprs-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error
}

type profileService interface {
	Get(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, req models.UpdateProfileRequest) (*models.User, error)
}

// AuthHandler wires HTTP endpoints to the auth and profile services.
type AuthHandler struct {
	service  authService
	profiles profileService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, profiles profileService) *AuthHandler {
	return &AuthHandler{service: svc, profiles: profiles}
}

// Register godoc
// @Summary Register account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 200 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid registration payload"))
		return
	}
	info, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "registration successful", info)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by username and password, optionally asserting a role
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "login successful", res)
}

// ChangePassword godoc
// @Summary Change password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "password changed", nil)
}

// Me godoc
// @Summary Get current user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	user, err := h.profiles.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "profile", user, nil)
}

// UpdateProfile godoc
// @Summary Update current user's profile
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.UpdateProfileRequest true "Profile"
// @Success 200 {object} response.Envelope
// @Router /me/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid profile payload"))
		return
	}
	user, err := h.profiles.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "profile updated", user)
}
