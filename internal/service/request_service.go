package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sprs-api/internal/dto"
	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	CountByStatus(ctx context.Context, status models.RequestStatus) (int, error)
	UpdateDraft(ctx context.Context, req *models.Request) error
	Submit(ctx context.Context, id, letter string, at time.Time) error
	Review(ctx context.Context, id string, next models.RequestStatus, review models.EmployeeReview, rejectionReason *string, at time.Time) error
	Finalize(ctx context.Context, id string, review models.AdminReview, at time.Time) error
	DeleteDraft(ctx context.Context, id string) error
}

type requestDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type requestNotifier interface {
	Create(ctx context.Context, recipient, sender *models.User, req *models.Request, kind models.NotificationType, title, message string) (*models.Notification, error)
}

// LetterArchiver persists the printable letter of a completed request.
type LetterArchiver interface {
	Archive(ctx context.Context, req *models.Request) (string, error)
}

// RequestService drives the request lifecycle and its notifications.
type RequestService struct {
	repo      requestStore
	users     requestDirectory
	notifier  requestNotifier
	archiver  LetterArchiver
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// RequestServiceOption customises the request service.
type RequestServiceOption func(*RequestService)

// WithLetterArchiver archives letters when a request is completed.
func WithLetterArchiver(archiver LetterArchiver) RequestServiceOption {
	return func(s *RequestService) {
		if archiver != nil {
			s.archiver = archiver
		}
	}
}

// WithRequestCache invalidates the dashboard queues a transition touches.
func WithRequestCache(cache *CacheService) RequestServiceOption {
	return func(s *RequestService) {
		s.cache = cache
	}
}

// WithRequestMetrics records transition counters.
func WithRequestMetrics(metrics *MetricsService) RequestServiceOption {
	return func(s *RequestService) {
		s.metrics = metrics
	}
}

// NewRequestService constructs the request lifecycle service.
func NewRequestService(repo requestStore, users requestDirectory, notifier requestNotifier, validate *validator.Validate, logger *zap.Logger, opts ...RequestServiceOption) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &RequestService{
		repo:      repo,
		users:     users,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create stores a new draft request for an active student.
func (s *RequestService) Create(ctx context.Context, studentID string, payload dto.CreateRequestPayload) (*models.Request, error) {
	if _, err := s.activeStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if err := s.validatePayload(payload); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	req := &models.Request{
		StudentID:   studentID,
		RequestType: payload.RequestType,
		FormData:    payload.FormData,
		Status:      models.RequestStatusDraft,
		Priority:    payload.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.emitAudit(ctx, studentID, req.ID, models.AuditActionRequestCreate, nil, req)
	return req, nil
}

// Update edits the form of a draft owned by actorID.
func (s *RequestService) Update(ctx context.Context, requestID, actorID string, payload dto.CreateRequestPayload) (*models.Request, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := ensureOwner(req, actorID); err != nil {
		return nil, err
	}
	if _, err := s.activeStudent(ctx, actorID); err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only draft requests can be edited")
	}
	if err := s.validatePayload(payload); err != nil {
		return nil, err
	}

	old := *req
	req.RequestType = payload.RequestType
	req.FormData = payload.FormData
	if payload.Priority != "" {
		req.Priority = payload.Priority
	}
	req.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateDraft(ctx, req); err != nil {
		return nil, s.transitionError(err, "failed to update request")
	}

	s.emitAudit(ctx, actorID, req.ID, models.AuditActionRequestUpdate, old, req)
	return req, nil
}

// Submit renders the letter of a draft, moves it to PENDING and notifies
// every active employee.
func (s *RequestService) Submit(ctx context.Context, requestID, actorID string) (*models.Request, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := ensureOwner(req, actorID); err != nil {
		return nil, err
	}
	student, err := s.activeStudent(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(models.RequestStatusPending) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has already been submitted")
	}

	now := s.now().UTC()
	letter := RenderLetter(req.RequestType, req.FormData, now)
	if err := s.repo.Submit(ctx, req.ID, letter, now); err != nil {
		return nil, s.transitionError(err, "failed to submit request")
	}
	from := req.Status
	req.GeneratedLetter = &letter
	req.Status = models.RequestStatusPending
	req.UpdatedAt = now
	s.afterTransition(ctx, actorID, req, from, models.AuditActionRequestSubmit)

	typeName := string(req.RequestType)
	s.notifyRole(ctx, models.RoleEmployee, student, req, models.NotificationRequestSubmitted,
		"New "+typeName+" Request",
		"A new "+strings.ToLower(typeName)+" request has been submitted by "+req.FormData.Name)
	return req, nil
}

// Review records the employee decision on a pending request. Accepted
// requests are announced to the student and every active admin; rejected
// ones only to the student.
func (s *RequestService) Review(ctx context.Context, requestID, employeeID string, payload dto.ReviewRequestPayload) (*models.Request, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only pending requests can be reviewed")
	}
	employee, err := s.users.FindByID(ctx, employeeID)
	if err != nil {
		return nil, s.userLookupError(err, "employee not found")
	}
	if !employee.Active || employee.Role != models.RoleEmployee {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only active employees can review requests")
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	var (
		next            models.RequestStatus
		rejectionReason *string
	)
	switch payload.Action {
	case models.ReviewActionAccepted:
		next = models.RequestStatusAccepted
	case models.ReviewActionRejected:
		next = models.RequestStatusRejected
		rejectionReason = optionalString(payload.RejectionReason)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be ACCEPTED or REJECTED")
	}

	now := s.now().UTC()
	review := models.EmployeeReview{
		ReviewerID: employeeID,
		ReviewedAt: now,
		Comments:   strings.TrimSpace(payload.Comments),
		Action:     payload.Action,
	}
	if err := s.repo.Review(ctx, req.ID, next, review, rejectionReason, now); err != nil {
		return nil, s.transitionError(err, "failed to review request")
	}
	from := req.Status
	req.Status = next
	req.EmployeeReview = &review
	req.RejectionReason = rejectionReason
	req.UpdatedAt = now
	s.afterTransition(ctx, employeeID, req, from, models.AuditActionRequestReview)

	student := s.recipient(ctx, req.StudentID)
	if next == models.RequestStatusAccepted {
		s.notify(ctx, student, employee, req, models.NotificationRequestAccepted,
			"Request Accepted",
			"Your request has been accepted and forwarded to admin.")
		typeName := string(req.RequestType)
		s.notifyRole(ctx, models.RoleAdmin, employee, req, models.NotificationRequestAccepted,
			"Approved "+typeName+" Request",
			"A "+strings.ToLower(typeName)+" request has been approved and needs admin review")
		return req, nil
	}

	reason := ""
	if rejectionReason != nil {
		reason = *rejectionReason
	}
	s.notify(ctx, student, employee, req, models.NotificationRequestRejected,
		"Request Rejected",
		"Your request has been rejected. Reason: "+reason)
	return req, nil
}

// Finalize marks an accepted request as printed and completes it.
func (s *RequestService) Finalize(ctx context.Context, requestID, adminID, comments string) (*models.Request, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusAccepted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only accepted requests can be printed")
	}
	admin, err := s.users.FindByID(ctx, adminID)
	if err != nil {
		return nil, s.userLookupError(err, "admin not found")
	}
	if !admin.Active || admin.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only active admins can print requests")
	}

	now := s.now().UTC()
	printedAt := now
	review := models.AdminReview{
		ReviewerID: adminID,
		ReviewedAt: now,
		Comments:   strings.TrimSpace(comments),
		Printed:    true,
		PrintedAt:  &printedAt,
	}
	if err := s.repo.Finalize(ctx, req.ID, review, now); err != nil {
		return nil, s.transitionError(err, "failed to finalize request")
	}
	from := req.Status
	req.Status = models.RequestStatusCompleted
	req.AdminReview = &review
	req.UpdatedAt = now
	s.afterTransition(ctx, adminID, req, from, models.AuditActionRequestFinalize)

	s.notify(ctx, s.recipient(ctx, req.StudentID), admin, req, models.NotificationRequestCompleted,
		"Request Completed",
		"Your request has been processed and completed.")

	if s.archiver != nil {
		if _, err := s.archiver.Archive(ctx, req); err != nil {
			s.logger.Warn("failed to archive letter", zap.String("request_id", req.ID), zap.Error(err))
		}
	}
	return req, nil
}

// Delete removes a draft owned by actorID.
func (s *RequestService) Delete(ctx context.Context, requestID, actorID string) error {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}
	if err := ensureOwner(req, actorID); err != nil {
		return err
	}
	if req.Status != models.RequestStatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidState, "only draft requests can be deleted")
	}
	if err := s.repo.DeleteDraft(ctx, req.ID); err != nil {
		return s.transitionError(err, "failed to delete request")
	}
	s.emitAudit(ctx, actorID, req.ID, models.AuditActionRequestDelete, req, nil)
	return nil
}

// Get returns a request visible to the actor. Students only see their own.
func (s *RequestService) Get(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleEmployee, models.RoleAdmin:
	case models.RoleStudent:
		if err := ensureOwner(req, actor.UserID); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	return req, nil
}

// ListForStudent returns the student's requests, optionally by status.
func (s *RequestService) ListForStudent(ctx context.Context, studentID string, status *models.RequestStatus) ([]models.Request, error) {
	if status != nil && !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request status")
	}
	return s.list(ctx, models.RequestFilter{StudentID: studentID, Status: status})
}

// ListByStatus returns every request in the given status.
func (s *RequestService) ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.Request, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request status")
	}
	return s.list(ctx, models.RequestFilter{Status: &status})
}

// ListReviewedBy returns the requests the employee has reviewed.
func (s *RequestService) ListReviewedBy(ctx context.Context, employeeID string) ([]models.Request, error) {
	return s.list(ctx, models.RequestFilter{EmployeeReviewerID: employeeID})
}

// CountByStatus returns the number of requests in status.
func (s *RequestService) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	count, err := s.repo.CountByStatus(ctx, status)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count requests")
	}
	return count, nil
}

func (s *RequestService) list(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if items == nil {
		items = []models.Request{}
	}
	return items, nil
}

func (s *RequestService) load(ctx context.Context, id string) (*models.Request, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return req, nil
}

func (s *RequestService) validatePayload(payload dto.CreateRequestPayload) error {
	if err := s.validator.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	return nil
}

func (s *RequestService) userLookupError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
}

// transitionError maps a lost compare-and-swap to InvalidState.
func (s *RequestService) transitionError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrInvalidState, "request status changed concurrently")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *RequestService) afterTransition(ctx context.Context, actorID string, req *models.Request, from models.RequestStatus, action string) {
	s.metrics.RecordTransition(from, req.Status)
	_ = s.cache.InvalidateTransition(ctx, from, req.Status)
	s.emitAudit(ctx, actorID, req.ID, action,
		map[string]models.RequestStatus{"status": from},
		map[string]models.RequestStatus{"status": req.Status})
}

// activeStudent resolves the author of a request. Deactivated students
// cannot create, edit or submit requests.
func (s *RequestService) activeStudent(ctx context.Context, id string) (*models.User, error) {
	student, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, s.userLookupError(err, "student not found")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can author requests")
	}
	return student, nil
}

func (s *RequestService) recipient(ctx context.Context, id string) *models.User {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn("failed to resolve notification recipient", zap.String("user_id", id), zap.Error(err))
		return nil
	}
	return user
}

func (s *RequestService) notifyRole(ctx context.Context, role models.UserRole, sender *models.User, req *models.Request, kind models.NotificationType, title, message string) {
	recipients, err := s.users.ListActiveByRole(ctx, role)
	if err != nil {
		s.logger.Warn("failed to list notification recipients", zap.String("role", string(role)), zap.Error(err))
		return
	}
	for i := range recipients {
		s.notify(ctx, &recipients[i], sender, req, kind, title, message)
	}
}

func (s *RequestService) notify(ctx context.Context, recipient, sender *models.User, req *models.Request, kind models.NotificationType, title, message string) {
	if s.notifier == nil || recipient == nil {
		return
	}
	if _, err := s.notifier.Create(ctx, recipient, sender, req, kind, title, message); err != nil {
		s.logger.Warn("failed to deliver notification",
			zap.String("recipient_id", recipient.ID),
			zap.String("request_id", req.ID),
			zap.String("type", string(kind)),
			zap.Error(err))
	}
}

func (s *RequestService) emitAudit(ctx context.Context, actorID, requestID, action string, oldValue, newValue interface{}) {
	if s.users == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   models.AuditResourceRequest,
		ResourceID: &requestID,
		IPAddress:  "system",
		UserAgent:  "request-service",
	}
	if oldValue != nil {
		log.OldValues, _ = json.Marshal(oldValue)
	}
	if newValue != nil {
		log.NewValues, _ = json.Marshal(newValue)
	}
	if err := s.users.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func ensureOwner(req *models.Request, actorID string) error {
	if req.StudentID != actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "request belongs to another student")
	}
	return nil
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
