package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sprs-api/internal/models"
)

const notificationColumns = `id, recipient_id, sender_id, request_id, type, title, message, is_read, read_at, priority, metadata, created_at`

// NotificationRepository persists per-recipient notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}
	const query = `INSERT INTO notifications (id, recipient_id, sender_id, request_id, type, title, message, is_read, read_at, priority, metadata, created_at) VALUES (:id, :recipient_id, :sender_id, :request_id, :type, :title, :message, :is_read, :read_at, :priority, :metadata, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// FindByID fetches a notification.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return &n, nil
}

// List returns a recipient's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(notificationColumns)
	sb.WriteString(" FROM notifications WHERE recipient_id = $1")
	if filter.UnreadOnly {
		sb.WriteString(" AND is_read = FALSE")
	}
	sb.WriteString(" ORDER BY created_at DESC, id ASC")
	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset))
	}

	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, sb.String(), filter.RecipientID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// Count returns the number of notifications for a recipient.
func (r *NotificationRepository) Count(ctx context.Context, recipientID string, unreadOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, recipientID); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return total, nil
}

// MarkAsRead flips is_read once; an already read row is left untouched so
// read_at keeps its first value. Reports whether a row changed.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id string, readAt time.Time) (bool, error) {
	const query = `UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE id = $1 AND is_read = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, readAt)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read rows: %w", err)
	}
	return rows > 0, nil
}

// MarkAllAsRead marks every unread notification of the recipient in one statement.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string, readAt time.Time) (int64, error) {
	const query = `UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE recipient_id = $1 AND is_read = FALSE`
	return r.execCount(ctx, "mark all notifications read", query, recipientID, readAt)
}

// DeleteReadBefore removes the recipient's read notifications created before cutoff.
func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, recipientID string, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM notifications WHERE recipient_id = $1 AND is_read = TRUE AND created_at < $2`
	return r.execCount(ctx, "purge read notifications", query, recipientID, cutoff)
}

// Delete removes a single notification.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM notifications WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return requireAffected(result, "delete notification")
}

func (r *NotificationRepository) execCount(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows: %w", op, err)
	}
	return rows, nil
}
