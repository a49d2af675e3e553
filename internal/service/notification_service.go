package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
)

const maxNotificationPageSize = 100

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	Count(ctx context.Context, recipientID string, unreadOnly bool) (int, error)
	MarkAsRead(ctx context.Context, id string, readAt time.Time) (bool, error)
	MarkAllAsRead(ctx context.Context, recipientID string, readAt time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, recipientID string, cutoff time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
}

// NotificationService creates and manages per-recipient notifications.
type NotificationService struct {
	repo    notificationStore
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewNotificationService constructs the notification service.
func NewNotificationService(repo notificationStore, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// Create stores a notification for recipient about req. Inactive recipients
// are skipped and yield a nil notification without error.
func (s *NotificationService) Create(ctx context.Context, recipient, sender *models.User, req *models.Request, kind models.NotificationType, title, message string) (*models.Notification, error) {
	if recipient == nil || !recipient.Active {
		s.metrics.RecordNotification(kind, NotificationOutcomeSkipped)
		return nil, nil
	}
	if req == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request is required")
	}

	n := &models.Notification{
		RecipientID: recipient.ID,
		RequestID:   req.ID,
		Type:        kind,
		Title:       title,
		Message:     message,
		Priority:    models.PriorityMedium,
		Metadata: models.NotificationMetadata{
			RequestType:   req.RequestType,
			RequestStatus: req.Status,
		},
		CreatedAt: s.now().UTC(),
	}
	if sender != nil {
		n.SenderID = sender.ID
		n.Metadata.ActionBy = sender.DisplayName()
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.metrics.RecordNotification(kind, NotificationOutcomeFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	s.metrics.RecordNotification(kind, NotificationOutcomeCreated)
	return n, nil
}

// List returns one zero-based page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, page, size int, unreadOnly bool) ([]models.Notification, *models.Pagination, error) {
	if page < 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "page must not be negative")
	}
	if size <= 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "size must be positive")
	}
	if size > maxNotificationPageSize {
		size = maxNotificationPageSize
	}

	total, err := s.repo.Count(ctx, userID, unreadOnly)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}

	// Compare by division so a huge page cannot wrap page*size.
	if total == 0 || page > (total-1)/size {
		return []models.Notification{}, pagination, nil
	}
	offset := page * size
	items, err := s.repo.List(ctx, models.NotificationFilter{
		RecipientID: userID,
		UnreadOnly:  unreadOnly,
		Limit:       size,
		Offset:      offset,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, pagination, nil
}

// UnreadCount returns how many unread notifications the user has.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.Count(ctx, userID, true)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkAsRead flags a notification as read. The first readAt is kept.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	n, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}

	readAt := s.now().UTC()
	updated, err := s.repo.MarkAsRead(ctx, id, readAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification as read")
	}
	if !updated {
		// marked concurrently; report the stored timestamp
		return s.owned(ctx, id, userID)
	}
	n.IsRead = true
	n.ReadAt = &readAt
	return n, nil
}

// MarkAllAsRead flags every unread notification of the user and returns the
// number of notifications changed.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.MarkAllAsRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications as read")
	}
	return count, nil
}

// PurgeOldRead deletes the user's read notifications created more than
// daysOld days ago.
func (s *NotificationService) PurgeOldRead(ctx context.Context, userID string, daysOld int) (int64, error) {
	if daysOld < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "daysOld must not be negative")
	}
	cutoff := s.now().UTC().AddDate(0, 0, -daysOld)
	count, err := s.repo.DeleteReadBefore(ctx, userID, cutoff)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge notifications")
	}
	if count > 0 {
		s.logger.Info("purged read notifications", zap.String("user_id", userID), zap.Int64("count", count))
	}
	return count, nil
}

// Delete removes a notification owned by the user.
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, id, userID string) (*models.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	if n.RecipientID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "notification belongs to another user")
	}
	return n, nil
}
