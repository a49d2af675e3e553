package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sprs-api/internal/dto"
	"github.com/noah-isme/sprs-api/internal/models"
	"github.com/noah-isme/sprs-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, userID string, page, size int, unreadOnly bool) ([]models.Notification, *models.Pagination, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, id, userID string) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	PurgeOldRead(ctx context.Context, userID string, daysOld int) (int64, error)
	Delete(ctx context.Context, id, userID string) error
}

// NotificationHandler exposes the caller's notification inbox.
type NotificationHandler struct {
	service         notificationService
	defaultPageSize int
	retentionDays   int
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc notificationService, defaultPageSize, retentionDays int) *NotificationHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if retentionDays < 0 {
		retentionDays = 30
	}
	return &NotificationHandler{service: svc, defaultPageSize: defaultPageSize, retentionDays: retentionDays}
}

// List godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param page query int false "Zero-based page"
// @Param size query int false "Page size"
// @Param unreadOnly query bool false "Only unread"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	page, err := queryInt(c, "page", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	size, err := queryInt(c, "size", h.defaultPageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unreadOnly", "false"))

	items, pagination, err := h.service.List(c.Request.Context(), claims.UserID, page, size, unreadOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "notifications", items, pagination)
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "unread count", dto.UnreadCountResponse{Count: count})
}

// MarkAsRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	n, err := h.service.MarkAsRead(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "notification marked as read", n)
}

// MarkAllAsRead godoc
// @Summary Mark every notification as read
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	affected, err := h.service.MarkAllAsRead(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "notifications marked as read", dto.AffectedResponse{Affected: affected})
}

// Delete godoc
// @Summary Delete a notification
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "notification deleted", nil)
}

// PurgeRead godoc
// @Summary Delete old read notifications
// @Tags Notifications
// @Produce json
// @Param daysOld query int false "Age in days"
// @Success 200 {object} response.Envelope
// @Router /notifications/read [delete]
func (h *NotificationHandler) PurgeRead(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	daysOld, err := queryInt(c, "daysOld", h.retentionDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	deleted, err := h.service.PurgeOldRead(c.Request.Context(), claims.UserID, daysOld)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "read notifications purged", dto.AffectedResponse{Affected: deleted})
}
