package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RequestType enumerates the kinds of permission a student can ask for.
type RequestType string

const (
	RequestTypeOuting RequestType = "OUTING"
	RequestTypeEvents RequestType = "EVENTS"
	RequestTypeFee    RequestType = "FEE"
	RequestTypeOthers RequestType = "OTHERS"
)

// Valid reports whether the type is known.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeOuting, RequestTypeEvents, RequestTypeFee, RequestTypeOthers:
		return true
	default:
		return false
	}
}

// RequestStatus is the lifecycle state of a request.
type RequestStatus string

const (
	RequestStatusDraft     RequestStatus = "DRAFT"
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusAccepted  RequestStatus = "ACCEPTED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCompleted RequestStatus = "COMPLETED"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusDraft:    {RequestStatusPending},
	RequestStatusPending:  {RequestStatusAccepted, RequestStatusRejected},
	RequestStatusAccepted: {RequestStatusCompleted},
}

// Valid reports whether the status is known.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusDraft, RequestStatusPending, RequestStatusAccepted, RequestStatusRejected, RequestStatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, candidate := range requestTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	return len(requestTransitions[s]) == 0
}

// Priority is informational only.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ReviewAction is the employee decision on a pending request.
type ReviewAction string

const (
	ReviewActionAccepted ReviewAction = "ACCEPTED"
	ReviewActionRejected ReviewAction = "REJECTED"
)

// FormDateLayout is the wire and storage layout of FormData.Date.
const FormDateLayout = "2006-01-02"

// FormData is the student supplied letter content.
type FormData struct {
	Name    string `json:"name" validate:"required,max=120"`
	RollNo  string `json:"rollNo" validate:"required,max=30"`
	Branch  string `json:"branch" validate:"required,max=60"`
	Section string `json:"section" validate:"required,max=10"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string `json:"time" validate:"required,max=20"`
	Contact string `json:"contact" validate:"required,max=20"`
	Reason  string `json:"reason" validate:"required,max=1000"`
}

// Value marshals form data to JSON for persistence.
func (f FormData) Value() (driver.Value, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal form data: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the form data.
func (f *FormData) Scan(value interface{}) error {
	return scanJSON(value, f, "form data")
}

// EmployeeReview records the first-stage decision.
type EmployeeReview struct {
	ReviewerID string       `json:"reviewerId"`
	ReviewedAt time.Time    `json:"reviewedAt"`
	Comments   string       `json:"comments,omitempty"`
	Action     ReviewAction `json:"action"`
}

// Value marshals the review to JSON for persistence.
func (r EmployeeReview) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal employee review: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the review.
func (r *EmployeeReview) Scan(value interface{}) error {
	return scanJSON(value, r, "employee review")
}

// AdminReview records finalization and printing.
type AdminReview struct {
	ReviewerID string     `json:"reviewerId"`
	ReviewedAt time.Time  `json:"reviewedAt"`
	Comments   string     `json:"comments,omitempty"`
	Printed    bool       `json:"printed"`
	PrintedAt  *time.Time `json:"printedAt,omitempty"`
}

// Value marshals the review to JSON for persistence.
func (r AdminReview) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal admin review: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the review.
func (r *AdminReview) Scan(value interface{}) error {
	return scanJSON(value, r, "admin review")
}

// Request is a student permission request and its review trail.
type Request struct {
	ID              string          `db:"id" json:"id"`
	StudentID       string          `db:"student_id" json:"student_id"`
	RequestType     RequestType     `db:"request_type" json:"request_type"`
	FormData        FormData        `db:"form_data" json:"form_data"`
	GeneratedLetter *string         `db:"generated_letter" json:"generated_letter,omitempty"`
	Status          RequestStatus   `db:"status" json:"status"`
	EmployeeReview  *EmployeeReview `db:"employee_review" json:"employee_review,omitempty"`
	AdminReview     *AdminReview    `db:"admin_review" json:"admin_review,omitempty"`
	RejectionReason *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Priority        Priority        `db:"priority" json:"priority"`
	Seq             int64           `db:"seq" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	StudentID          string
	Status             *RequestStatus
	EmployeeReviewerID string
	Limit              int
}
