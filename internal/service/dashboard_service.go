package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sprs-api/internal/dto"
	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
)

type dashboardRequestSource interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	CountByStatus(ctx context.Context, status models.RequestStatus) (int, error)
}

type dashboardNotificationSource interface {
	List(ctx context.Context, userID string, page, size int, unreadOnly bool) ([]models.Notification, *models.Pagination, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL           time.Duration
	RecentRequests     int
	RecentNotification int
	QueueSize          int
}

// DashboardService composes the per-role dashboards.
type DashboardService struct {
	requests      dashboardRequestSource
	notifications dashboardNotificationSource
	cache         *CacheService
	logger        *zap.Logger
	cfg           DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Requests      dashboardRequestSource
	Notifications dashboardNotificationSource
	Cache         *CacheService
	Logger        *zap.Logger
	Config        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	if cfg.RecentRequests <= 0 {
		cfg.RecentRequests = 5
	}
	if cfg.RecentNotification <= 0 {
		cfg.RecentNotification = 5
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		requests:      params.Requests,
		notifications: params.Notifications,
		cache:         params.Cache,
		logger:        logger,
		cfg:           cfg,
	}
}

// Student returns the student's latest requests and notifications.
func (s *DashboardService) Student(ctx context.Context, userID string) (*dto.StudentDashboardResponse, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	requests, err := s.requests.List(ctx, models.RequestFilter{StudentID: userID, Limit: s.cfg.RecentRequests})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent requests")
	}
	recent, unread, err := s.inbox(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.StudentDashboardResponse{
		RecentRequests:      nonNilRequests(requests),
		RecentNotifications: recent,
		UnreadCount:         unread,
	}, nil
}

// Employee returns the head of the pending queue. The bool reports a cache hit.
func (s *DashboardService) Employee(ctx context.Context, userID string) (*dto.EmployeeDashboardResponse, bool, error) {
	if userID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	queue, hit, err := s.queue(ctx, models.RequestStatusPending)
	if err != nil {
		return nil, false, err
	}
	recent, unread, err := s.inbox(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return &dto.EmployeeDashboardResponse{
		PendingRequests:     queue.Items,
		TotalPending:        queue.Total,
		RecentNotifications: recent,
		UnreadCount:         unread,
	}, hit, nil
}

// Admin returns the head of the accepted queue. The bool reports a cache hit.
func (s *DashboardService) Admin(ctx context.Context, userID string) (*dto.AdminDashboardResponse, bool, error) {
	if userID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	queue, hit, err := s.queue(ctx, models.RequestStatusAccepted)
	if err != nil {
		return nil, false, err
	}
	recent, unread, err := s.inbox(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return &dto.AdminDashboardResponse{
		AcceptedRequests:    queue.Items,
		TotalAccepted:       queue.Total,
		RecentNotifications: recent,
		UnreadCount:         unread,
	}, hit, nil
}

func (s *DashboardService) queue(ctx context.Context, status models.RequestStatus) (*dto.RequestQueue, bool, error) {
	if cached, hit, err := s.cache.Queue(ctx, status); err == nil && hit {
		return cached, true, nil
	}

	items, err := s.requests.List(ctx, models.RequestFilter{Status: &status, Limit: s.cfg.QueueSize})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request queue")
	}
	total, err := s.requests.CountByStatus(ctx, status)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count request queue")
	}
	queue := &dto.RequestQueue{Items: nonNilRequests(items), Total: total}
	if err := s.cache.StoreQueue(ctx, status, queue, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("status", string(status)), zap.Error(err))
	}
	return queue, false, nil
}

func (s *DashboardService) inbox(ctx context.Context, userID string) ([]models.Notification, int, error) {
	recent, _, err := s.notifications.List(ctx, userID, 0, s.cfg.RecentNotification, false)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return recent, unread, nil
}

func nonNilRequests(items []models.Request) []models.Request {
	if items == nil {
		return []models.Request{}
	}
	return items
}
