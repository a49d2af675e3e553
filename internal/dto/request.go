package dto

import "github.com/noah-isme/sprs-api/internal/models"

// CreateRequestPayload carries the fields a student fills in for a request.
// It is also used to edit a draft.
type CreateRequestPayload struct {
	RequestType models.RequestType `json:"requestType" validate:"required,oneof=OUTING EVENTS FEE OTHERS"`
	FormData    models.FormData    `json:"formData"`
	Priority    models.Priority    `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
}

// ReviewRequestPayload is the employee decision on a pending request.
type ReviewRequestPayload struct {
	Action          models.ReviewAction `json:"action"`
	Comments        string              `json:"comments" validate:"max=1000"`
	RejectionReason string              `json:"rejectionReason" validate:"max=1000"`
}

// FinalizeRequestPayload carries optional admin comments when printing.
type FinalizeRequestPayload struct {
	Comments string `json:"comments" validate:"max=1000"`
}

// RequestListQuery mirrors the student listing filter.
type RequestListQuery struct {
	Status *models.RequestStatus
}

// LetterLinkResponse exposes a signed download link for an archived letter.
type LetterLinkResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}
