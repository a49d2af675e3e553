package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sprs-api/internal/dto"
	"github.com/noah-isme/sprs-api/internal/middleware"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
	"github.com/noah-isme/sprs-api/pkg/response"
)

type dashboardService interface {
	Student(ctx context.Context, userID string) (*dto.StudentDashboardResponse, error)
	Employee(ctx context.Context, userID string) (*dto.EmployeeDashboardResponse, bool, error)
	Admin(ctx context.Context, userID string) (*dto.AdminDashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Student godoc
// @Summary Student dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/dashboard [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	summary, err := h.service.Student(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "dashboard", summary, nil, middleware.ExtractMeta(c))
}

// Employee godoc
// @Summary Employee dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /employee/dashboard [get]
func (h *DashboardHandler) Employee(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	summary, cacheHit, err := h.service.Employee(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, "dashboard", summary, nil, middleware.ExtractMeta(c))
}

// Admin godoc
// @Summary Admin dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	summary, cacheHit, err := h.service.Admin(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, "dashboard", summary, nil, middleware.ExtractMeta(c))
}

func (h *DashboardHandler) claims(c *gin.Context) (string, bool) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return "", false
	}
	claims, ok := requireClaims(c)
	if !ok {
		return "", false
	}
	return claims.UserID, true
}
