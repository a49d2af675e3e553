package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType enumerates lifecycle events that produce notifications.
type NotificationType string

const (
	NotificationRequestSubmitted NotificationType = "REQUEST_SUBMITTED"
	NotificationRequestAccepted  NotificationType = "REQUEST_ACCEPTED"
	NotificationRequestRejected  NotificationType = "REQUEST_REJECTED"
	NotificationRequestCompleted NotificationType = "REQUEST_COMPLETED"
)

// NotificationMetadata snapshots request and sender details at creation time.
type NotificationMetadata struct {
	RequestType   RequestType   `json:"requestType"`
	RequestStatus RequestStatus `json:"requestStatus"`
	ActionBy      string        `json:"actionBy"`
}

// Value marshals metadata to JSON for persistence.
func (m NotificationMetadata) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal notification metadata: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into metadata.
func (m *NotificationMetadata) Scan(value interface{}) error {
	return scanJSON(value, m, "notification metadata")
}

// Notification is a message delivered to a single recipient.
type Notification struct {
	ID          string               `db:"id" json:"id"`
	RecipientID string               `db:"recipient_id" json:"recipient_id"`
	SenderID    string               `db:"sender_id" json:"sender_id"`
	RequestID   string               `db:"request_id" json:"request_id"`
	Type        NotificationType     `db:"type" json:"type"`
	Title       string               `db:"title" json:"title"`
	Message     string               `db:"message" json:"message"`
	IsRead      bool                 `db:"is_read" json:"is_read"`
	ReadAt      *time.Time           `db:"read_at" json:"read_at,omitempty"`
	Priority    Priority             `db:"priority" json:"priority"`
	Metadata    NotificationMetadata `db:"metadata" json:"metadata"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
}

// NotificationFilter narrows a recipient's notification listing.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Limit       int
	Offset      int
}
