package dto

import "github.com/noah-isme/sprs-api/internal/models"

// RequestQueue is a bounded slice of a status queue plus its full size.
type RequestQueue struct {
	Items []models.Request `json:"items"`
	Total int              `json:"total"`
}

// StudentDashboardResponse summarises a student's recent activity.
type StudentDashboardResponse struct {
	RecentRequests      []models.Request      `json:"recentRequests"`
	RecentNotifications []models.Notification `json:"recentNotifications"`
	UnreadCount         int                   `json:"unreadCount"`
}

// EmployeeDashboardResponse shows the pending review queue.
type EmployeeDashboardResponse struct {
	PendingRequests     []models.Request      `json:"pendingRequests"`
	TotalPending        int                   `json:"totalPending"`
	RecentNotifications []models.Notification `json:"recentNotifications"`
	UnreadCount         int                   `json:"unreadCount"`
}

// AdminDashboardResponse shows the accepted queue awaiting printing.
type AdminDashboardResponse struct {
	AcceptedRequests    []models.Request      `json:"acceptedRequests"`
	TotalAccepted       int                   `json:"totalAccepted"`
	RecentNotifications []models.Notification `json:"recentNotifications"`
	UnreadCount         int                   `json:"unreadCount"`
}
