package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sprs-api/internal/dto"
	"github.com/noah-isme/sprs-api/internal/models"
	"github.com/noah-isme/sprs-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, studentID string, payload dto.CreateRequestPayload) (*models.Request, error)
	Update(ctx context.Context, requestID, actorID string, payload dto.CreateRequestPayload) (*models.Request, error)
	Submit(ctx context.Context, requestID, actorID string) (*models.Request, error)
	Review(ctx context.Context, requestID, employeeID string, payload dto.ReviewRequestPayload) (*models.Request, error)
	Finalize(ctx context.Context, requestID, adminID, comments string) (*models.Request, error)
	Delete(ctx context.Context, requestID, actorID string) error
	Get(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.Request, error)
	ListForStudent(ctx context.Context, studentID string, status *models.RequestStatus) ([]models.Request, error)
	ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.Request, error)
	ListReviewedBy(ctx context.Context, employeeID string) ([]models.Request, error)
}

// RequestHandler exposes the request lifecycle to students, employees and admins.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(svc requestService) *RequestHandler {
	return &RequestHandler{service: svc}
}

// Create godoc
// @Summary Create a draft request
// @Tags Student
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestPayload true "Request"
// @Success 200 {object} response.Envelope
// @Router /student/requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var payload dto.CreateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindError(err, "invalid request payload"))
		return
	}
	req, err := h.service.Create(c.Request.Context(), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "request created", req)
}

// ListMine godoc
// @Summary List the caller's requests
// @Tags Student
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /student/requests [get]
func (h *RequestHandler) ListMine(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var status *models.RequestStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		s := models.RequestStatus(strings.ToUpper(raw))
		status = &s
	}
	items, err := h.service.ListForStudent(c.Request.Context(), claims.UserID, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "requests", items)
}

// Get godoc
// @Summary Get a request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /student/requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	req, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "request", req)
}

// Update godoc
// @Summary Edit a draft request
// @Tags Student
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.CreateRequestPayload true "Request"
// @Success 200 {object} response.Envelope
// @Router /student/requests/{id} [put]
func (h *RequestHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var payload dto.CreateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindError(err, "invalid request payload"))
		return
	}
	req, err := h.service.Update(c.Request.Context(), c.Param("id"), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "request updated", req)
}

// Submit godoc
// @Summary Generate the letter and submit a draft
// @Tags Student
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /student/requests/{id}/submit [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	req, err := h.service.Submit(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "request submitted", req)
}

// Delete godoc
// @Summary Delete a draft request
// @Tags Student
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /student/requests/{id} [delete]
func (h *RequestHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "request deleted", nil)
}

// Pending godoc
// @Summary Requests awaiting employee review
// @Tags Employee
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /employee/requests/pending [get]
func (h *RequestHandler) Pending(c *gin.Context) {
	h.listByStatus(c, models.RequestStatusPending)
}

// Reviewed godoc
// @Summary Requests reviewed by the caller
// @Tags Employee
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /employee/requests/reviewed [get]
func (h *RequestHandler) Reviewed(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	items, err := h.service.ListReviewedBy(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "requests", items)
}

// Review godoc
// @Summary Accept or reject a pending request
// @Tags Employee
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewRequestPayload true "Decision"
// @Success 200 {object} response.Envelope
// @Router /employee/requests/{id}/review [post]
func (h *RequestHandler) Review(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var payload dto.ReviewRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, bindError(err, "invalid review payload"))
		return
	}
	payload.Action = models.ReviewAction(strings.ToUpper(strings.TrimSpace(string(payload.Action))))
	req, err := h.service.Review(c.Request.Context(), c.Param("id"), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "request reviewed", req)
}

// Accepted godoc
// @Summary Requests awaiting printing
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/requests/accepted [get]
func (h *RequestHandler) Accepted(c *gin.Context) {
	h.listByStatus(c, models.RequestStatusAccepted)
}

// Completed godoc
// @Summary Printed requests
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/requests/completed [get]
func (h *RequestHandler) Completed(c *gin.Context) {
	h.listByStatus(c, models.RequestStatusCompleted)
}

// Finalize godoc
// @Summary Mark an accepted request as printed
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.FinalizeRequestPayload false "Comments"
// @Success 200 {object} response.Envelope
// @Router /admin/requests/{id}/print [post]
func (h *RequestHandler) Finalize(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var payload dto.FinalizeRequestPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			response.Error(c, bindError(err, "invalid print payload"))
			return
		}
	}
	req, err := h.service.Finalize(c.Request.Context(), c.Param("id"), claims.UserID, payload.Comments)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "request completed", req)
}

func (h *RequestHandler) listByStatus(c *gin.Context, status models.RequestStatus) {
	if _, ok := requireClaims(c); !ok {
		return
	}
	items, err := h.service.ListByStatus(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "requests", items, nil, map[string]interface{}{"status": status})
}
