package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sprs-api/internal/dto"
	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
)

type memoryRequestStore struct {
	mu    sync.Mutex
	items map[string]*models.Request
	seq   int64
}

func newMemoryRequestStore() *memoryRequestStore {
	return &memoryRequestStore{items: map[string]*models.Request{}}
}

func (m *memoryRequestStore) Create(ctx context.Context, req *models.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	req.ID = fmt.Sprintf("req-%03d", m.seq)
	req.Seq = m.seq
	clone := *req
	m.items[req.ID] = &clone
	return nil
}

func (m *memoryRequestStore) FindByID(ctx context.Context, id string) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (m *memoryRequestStore) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Request
	for _, req := range m.items {
		if filter.StudentID != "" && req.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.EmployeeReviewerID != "" && (req.EmployeeReview == nil || req.EmployeeReview.ReviewerID != filter.EmployeeReviewerID) {
			continue
		}
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memoryRequestStore) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, req := range m.items {
		if req.Status == status {
			count++
		}
	}
	return count, nil
}

// swap applies mutate when the stored status still matches expected.
func (m *memoryRequestStore) swap(id string, expected models.RequestStatus, mutate func(*models.Request) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.items[id]
	if !ok || req.Status != expected {
		return sql.ErrNoRows
	}
	if !mutate(req) {
		return sql.ErrNoRows
	}
	return nil
}

func (m *memoryRequestStore) UpdateDraft(ctx context.Context, req *models.Request) error {
	return m.swap(req.ID, models.RequestStatusDraft, func(stored *models.Request) bool {
		stored.RequestType = req.RequestType
		stored.FormData = req.FormData
		stored.Priority = req.Priority
		stored.UpdatedAt = req.UpdatedAt
		return true
	})
}

func (m *memoryRequestStore) Submit(ctx context.Context, id, letter string, at time.Time) error {
	return m.swap(id, models.RequestStatusDraft, func(stored *models.Request) bool {
		stored.GeneratedLetter = &letter
		stored.Status = models.RequestStatusPending
		stored.UpdatedAt = at
		return true
	})
}

func (m *memoryRequestStore) Review(ctx context.Context, id string, next models.RequestStatus, review models.EmployeeReview, rejectionReason *string, at time.Time) error {
	return m.swap(id, models.RequestStatusPending, func(stored *models.Request) bool {
		if stored.EmployeeReview != nil {
			return false
		}
		stored.Status = next
		stored.EmployeeReview = &review
		stored.RejectionReason = rejectionReason
		stored.UpdatedAt = at
		return true
	})
}

func (m *memoryRequestStore) Finalize(ctx context.Context, id string, review models.AdminReview, at time.Time) error {
	return m.swap(id, models.RequestStatusAccepted, func(stored *models.Request) bool {
		if stored.AdminReview != nil {
			return false
		}
		stored.Status = models.RequestStatusCompleted
		stored.AdminReview = &review
		stored.UpdatedAt = at
		return true
	})
}

func (m *memoryRequestStore) DeleteDraft(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.items[id]
	if !ok || req.Status != models.RequestStatusDraft {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type lockedDirectory struct {
	mu   sync.Mutex
	repo *userRepoStub
}

func (d *lockedDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.repo.FindByID(ctx, id)
}

func (d *lockedDirectory) ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	users, err := d.repo.ListActiveByRole(ctx, role)
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, err
}

func (d *lockedDirectory) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.repo.CreateAuditLog(ctx, log)
}

type archiverStub struct {
	mu       sync.Mutex
	archived []string
	err      error
}

func (a *archiverStub) Archive(ctx context.Context, req *models.Request) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, req.ID)
	return "letters/" + req.ID + ".pdf", a.err
}

type requestFixture struct {
	svc           *RequestService
	store         *memoryRequestStore
	notifications *memoryNotificationStore
	notifier      *NotificationService
	users         *lockedDirectory
	archiver      *archiverStub
	metrics       *MetricsService
}

func newRequestFixture(t *testing.T, extra ...*models.User) *requestFixture {
	t.Helper()
	users := []*models.User{
		{ID: "stu-1", Username: "asha", Role: models.RoleStudent, Active: true, Profile: models.Profile{Name: "Asha Rao"}},
		{ID: "stu-2", Username: "vikram", Role: models.RoleStudent, Active: true, Profile: models.Profile{Name: "Vikram"}},
		{ID: "emp-1", Username: "ravi", Role: models.RoleEmployee, Active: true, Profile: models.Profile{Name: "Ravi"}},
		{ID: "emp-2", Username: "meera", Role: models.RoleEmployee, Active: true, Profile: models.Profile{Name: "Meera"}},
		{ID: "adm-1", Username: "root", Role: models.RoleAdmin, Active: true, Profile: models.Profile{Name: "Principal"}},
		{ID: "adm-2", Username: "office", Role: models.RoleAdmin, Active: true, Profile: models.Profile{Name: "Office"}},
	}
	users = append(users, extra...)
	directory := &lockedDirectory{repo: newUserRepoStub(users...)}
	store := newMemoryRequestStore()
	notifications := newMemoryNotificationStore()
	metrics := NewMetricsService()
	notifier := newTestNotificationService(notifications)
	archiver := &archiverStub{}

	svc := NewRequestService(store, directory, notifier, nil, nil,
		WithLetterArchiver(archiver),
		WithRequestMetrics(metrics),
	)
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	var mu sync.Mutex
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return &requestFixture{
		svc:           svc,
		store:         store,
		notifications: notifications,
		notifier:      notifier,
		users:         directory,
		archiver:      archiver,
		metrics:       metrics,
	}
}

func outingPayload() dto.CreateRequestPayload {
	return dto.CreateRequestPayload{
		RequestType: models.RequestTypeOuting,
		FormData:    sampleForm(),
	}
}

func (f *requestFixture) draft(t *testing.T) *models.Request {
	t.Helper()
	req, err := f.svc.Create(context.Background(), "stu-1", outingPayload())
	require.NoError(t, err)
	return req
}

func (f *requestFixture) pending(t *testing.T) *models.Request {
	t.Helper()
	req := f.draft(t)
	submitted, err := f.svc.Submit(context.Background(), req.ID, "stu-1")
	require.NoError(t, err)
	return submitted
}

func (f *requestFixture) accepted(t *testing.T) *models.Request {
	t.Helper()
	req := f.pending(t)
	reviewed, err := f.svc.Review(context.Background(), req.ID, "emp-1", dto.ReviewRequestPayload{Action: models.ReviewActionAccepted})
	require.NoError(t, err)
	return reviewed
}

func (f *requestFixture) unread(t *testing.T, userID string) int {
	t.Helper()
	count, err := f.notifier.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	return count
}

func (f *requestFixture) stored(t *testing.T, id string) *models.Request {
	t.Helper()
	req, err := f.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	return req
}

func TestRequestServiceCreate(t *testing.T) {
	inactive := &models.User{ID: "stu-9", Role: models.RoleStudent, Active: false}
	f := newRequestFixture(t, inactive)

	req := f.draft(t)
	assert.Equal(t, models.RequestStatusDraft, req.Status)
	assert.Equal(t, models.PriorityMedium, req.Priority)
	assert.Nil(t, req.GeneratedLetter)
	assert.Equal(t, "stu-1", req.StudentID)

	_, err := f.svc.Create(context.Background(), "ghost", outingPayload())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Create(context.Background(), "stu-9", outingPayload())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Create(context.Background(), "emp-1", outingPayload())
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	bad := outingPayload()
	bad.FormData.Reason = ""
	_, err = f.svc.Create(context.Background(), "stu-1", bad)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	bad = outingPayload()
	bad.RequestType = "HOLIDAY"
	_, err = f.svc.Create(context.Background(), "stu-1", bad)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRequestServiceUpdateDraftOnly(t *testing.T) {
	f := newRequestFixture(t)
	req := f.draft(t)

	payload := outingPayload()
	payload.RequestType = models.RequestTypeEvents
	payload.Priority = models.PriorityHigh
	updated, err := f.svc.Update(context.Background(), req.ID, "stu-1", payload)
	require.NoError(t, err)
	assert.Equal(t, models.RequestTypeEvents, updated.RequestType)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.True(t, updated.UpdatedAt.After(req.UpdatedAt))

	_, err = f.svc.Update(context.Background(), req.ID, "stu-2", payload)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Submit(context.Background(), req.ID, "stu-1")
	require.NoError(t, err)
	_, err = f.svc.Update(context.Background(), req.ID, "stu-1", outingPayload())
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Equal(t, models.RequestTypeEvents, f.stored(t, req.ID).RequestType)
}

func TestRequestServiceSubmitSetsLetterOnce(t *testing.T) {
	f := newRequestFixture(t)
	req := f.draft(t)

	submitted, err := f.svc.Submit(context.Background(), req.ID, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, submitted.Status)
	require.NotNil(t, submitted.GeneratedLetter)
	letter := *submitted.GeneratedLetter
	assert.Contains(t, letter, "OUTING")
	assert.Contains(t, letter, "medical")

	_, err = f.svc.Submit(context.Background(), req.ID, "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Equal(t, letter, *f.stored(t, req.ID).GeneratedLetter)

	assert.Equal(t, 1, f.unread(t, "emp-1"))
	assert.Equal(t, 1, f.unread(t, "emp-2"))
	assert.Zero(t, f.unread(t, "adm-1"))

	n := f.notifications.forRecipient("emp-1")[0]
	assert.Equal(t, models.NotificationRequestSubmitted, n.Type)
	assert.Equal(t, "New OUTING Request", n.Title)
	assert.Equal(t, "A new outing request has been submitted by Asha Rao", n.Message)
	assert.Equal(t, models.RequestStatusPending, n.Metadata.RequestStatus)
	assert.Equal(t, "Asha Rao", n.Metadata.ActionBy)
}

func TestRequestServiceSubmitRequiresOwner(t *testing.T) {
	f := newRequestFixture(t)
	req := f.draft(t)

	_, err := f.svc.Submit(context.Background(), req.ID, "stu-2")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Equal(t, models.RequestStatusDraft, f.stored(t, req.ID).Status)

	_, err = f.svc.Submit(context.Background(), "missing", "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRequestServiceDeactivatedStudentCannotEditOrSubmit(t *testing.T) {
	f := newRequestFixture(t)
	req := f.draft(t)
	f.users.repo.users["stu-1"].Active = false

	_, err := f.svc.Update(context.Background(), req.ID, "stu-1", outingPayload())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Submit(context.Background(), req.ID, "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	stored := f.stored(t, req.ID)
	assert.Equal(t, models.RequestStatusDraft, stored.Status)
	assert.Nil(t, stored.GeneratedLetter)
	assert.Zero(t, f.unread(t, "emp-1"))
}

func TestRequestServiceAcceptNotifiesStudentAndAdmins(t *testing.T) {
	f := newRequestFixture(t)
	req := f.pending(t)

	reviewed, err := f.svc.Review(context.Background(), req.ID, "emp-1", dto.ReviewRequestPayload{
		Action:   models.ReviewActionAccepted,
		Comments: "  approved  ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, reviewed.Status)
	require.NotNil(t, reviewed.EmployeeReview)
	assert.Equal(t, "emp-1", reviewed.EmployeeReview.ReviewerID)
	assert.Equal(t, "approved", reviewed.EmployeeReview.Comments)
	assert.Nil(t, reviewed.RejectionReason)

	accepted := 0
	for _, id := range []string{"stu-1", "adm-1", "adm-2"} {
		for _, n := range f.notifications.forRecipient(id) {
			if n.Type == models.NotificationRequestAccepted {
				accepted++
			}
		}
	}
	assert.Equal(t, 3, accepted)

	student := f.notifications.forRecipient("stu-1")
	require.Len(t, student, 1)
	assert.Equal(t, "Request Accepted", student[0].Title)
	assert.Equal(t, "Your request has been accepted and forwarded to admin.", student[0].Message)
	assert.Equal(t, "Ravi", student[0].Metadata.ActionBy)

	admin := f.notifications.forRecipient("adm-1")
	require.Len(t, admin, 1)
	assert.Equal(t, "Approved OUTING Request", admin[0].Title)
	assert.Equal(t, "A outing request has been approved and needs admin review", admin[0].Message)
}

func TestRequestServiceRejectNotifiesOnlyStudent(t *testing.T) {
	f := newRequestFixture(t)
	req := f.pending(t)

	reviewed, err := f.svc.Review(context.Background(), req.ID, "emp-2", dto.ReviewRequestPayload{
		Action:          models.ReviewActionRejected,
		RejectionReason: "exam week",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, reviewed.Status)
	require.NotNil(t, reviewed.RejectionReason)
	assert.Equal(t, "exam week", *reviewed.RejectionReason)
	assert.True(t, reviewed.Status.Terminal())

	student := f.notifications.forRecipient("stu-1")
	require.Len(t, student, 1)
	assert.Equal(t, models.NotificationRequestRejected, student[0].Type)
	assert.Equal(t, "Request Rejected", student[0].Title)
	assert.Equal(t, "Your request has been rejected. Reason: exam week", student[0].Message)
	assert.Empty(t, f.notifications.forRecipient("adm-1"))
	assert.Empty(t, f.notifications.forRecipient("adm-2"))

	_, err = f.svc.Finalize(context.Background(), req.ID, "adm-1", "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
}

func TestRequestServiceReviewGuards(t *testing.T) {
	inactive := &models.User{ID: "emp-9", Role: models.RoleEmployee, Active: false}
	f := newRequestFixture(t, inactive)

	draft := f.draft(t)
	_, err := f.svc.Review(context.Background(), draft.ID, "emp-1", dto.ReviewRequestPayload{Action: models.ReviewActionAccepted})
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Equal(t, models.RequestStatusDraft, f.stored(t, draft.ID).Status)

	req := f.pending(t)
	_, err = f.svc.Review(context.Background(), req.ID, "ghost", dto.ReviewRequestPayload{Action: models.ReviewActionAccepted})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Review(context.Background(), req.ID, "emp-9", dto.ReviewRequestPayload{Action: models.ReviewActionAccepted})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Review(context.Background(), req.ID, "stu-2", dto.ReviewRequestPayload{Action: models.ReviewActionAccepted})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Review(context.Background(), req.ID, "emp-1", dto.ReviewRequestPayload{Action: "MAYBE"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, models.RequestStatusPending, f.stored(t, req.ID).Status)

	_, err = f.svc.Review(context.Background(), req.ID, "emp-1", dto.ReviewRequestPayload{Action: models.ReviewActionAccepted})
	require.NoError(t, err)
	_, err = f.svc.Review(context.Background(), req.ID, "emp-2", dto.ReviewRequestPayload{Action: models.ReviewActionRejected})
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Equal(t, "emp-1", f.stored(t, req.ID).EmployeeReview.ReviewerID)
}

func TestRequestServiceConcurrentReviewsOneWins(t *testing.T) {
	f := newRequestFixture(t)
	req := f.pending(t)

	actions := []struct {
		employee string
		action   models.ReviewAction
	}{
		{"emp-1", models.ReviewActionAccepted},
		{"emp-2", models.ReviewActionRejected},
	}
	errs := make([]error, len(actions))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, a := range actions {
		wg.Add(1)
		go func(i int, employee string, action models.ReviewAction) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.Review(context.Background(), req.ID, employee, dto.ReviewRequestPayload{Action: action})
		}(i, a.employee, a.action)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)

	stored := f.stored(t, req.ID)
	require.NotNil(t, stored.EmployeeReview)
	assert.Contains(t, []models.RequestStatus{models.RequestStatusAccepted, models.RequestStatusRejected}, stored.Status)
}

func TestRequestServiceFinalize(t *testing.T) {
	f := newRequestFixture(t)
	req := f.accepted(t)

	_, err := f.svc.Finalize(context.Background(), req.ID, "emp-1", "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	done, err := f.svc.Finalize(context.Background(), req.ID, "adm-1", "printed at office")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, done.Status)
	require.NotNil(t, done.AdminReview)
	assert.True(t, done.AdminReview.Printed)
	require.NotNil(t, done.AdminReview.PrintedAt)
	assert.Equal(t, "adm-1", done.AdminReview.ReviewerID)
	assert.Equal(t, []string{req.ID}, f.archiver.archived)

	completed := f.notifications.forRecipient("stu-1")[0]
	assert.Equal(t, models.NotificationRequestCompleted, completed.Type)
	assert.Equal(t, "Request Completed", completed.Title)
	assert.Equal(t, "Your request has been processed and completed.", completed.Message)

	_, err = f.svc.Finalize(context.Background(), req.ID, "adm-2", "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
}

func TestRequestServiceFinalizeArchiveFailureIsBestEffort(t *testing.T) {
	f := newRequestFixture(t)
	f.archiver.err = fmt.Errorf("disk full")
	req := f.accepted(t)

	done, err := f.svc.Finalize(context.Background(), req.ID, "adm-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, done.Status)
}

func TestRequestServiceForwardOnly(t *testing.T) {
	f := newRequestFixture(t)
	req := f.accepted(t)
	_, err := f.svc.Finalize(context.Background(), req.ID, "adm-1", "")
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), req.ID, "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	_, err = f.svc.Review(context.Background(), req.ID, "emp-1", dto.ReviewRequestPayload{Action: models.ReviewActionRejected})
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	err = f.svc.Delete(context.Background(), req.ID, "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Equal(t, models.RequestStatusCompleted, f.stored(t, req.ID).Status)
}

func TestRequestServiceDelete(t *testing.T) {
	f := newRequestFixture(t)
	draft := f.draft(t)

	err := f.svc.Delete(context.Background(), draft.ID, "stu-2")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, f.svc.Delete(context.Background(), draft.ID, "stu-1"))
	_, err = f.store.FindByID(context.Background(), draft.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	pending := f.pending(t)
	before := f.stored(t, pending.ID)
	err = f.svc.Delete(context.Background(), pending.ID, "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Equal(t, before, f.stored(t, pending.ID))
}

func TestRequestServiceGetVisibility(t *testing.T) {
	f := newRequestFixture(t)
	req := f.draft(t)

	got, err := f.svc.Get(context.Background(), req.ID, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	_, err = f.svc.Get(context.Background(), req.ID, &models.JWTClaims{UserID: "stu-2", Role: models.RoleStudent})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Get(context.Background(), req.ID, &models.JWTClaims{UserID: "emp-2", Role: models.RoleEmployee})
	assert.NoError(t, err)

	_, err = f.svc.Get(context.Background(), req.ID, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestRequestServiceListings(t *testing.T) {
	f := newRequestFixture(t)
	first := f.draft(t)
	second := f.pending(t)
	third := f.accepted(t)

	all, err := f.svc.ListForStudent(context.Background(), "stu-1", nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	pendingStatus := models.RequestStatusPending
	onlyPending, err := f.svc.ListForStudent(context.Background(), "stu-1", &pendingStatus)
	require.NoError(t, err)
	require.Len(t, onlyPending, 1)
	assert.Equal(t, second.ID, onlyPending[0].ID)

	accepted, err := f.svc.ListByStatus(context.Background(), models.RequestStatusAccepted)
	require.NoError(t, err)
	require.Len(t, accepted, 1)

	reviewed, err := f.svc.ListReviewedBy(context.Background(), "emp-1")
	require.NoError(t, err)
	require.Len(t, reviewed, 1)
	assert.Equal(t, third.ID, reviewed[0].ID)

	none, err := f.svc.ListForStudent(context.Background(), "stu-2", nil)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.svc.ListByStatus(context.Background(), "ARCHIVED")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	count, err := f.svc.CountByStatus(context.Background(), models.RequestStatusDraft)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRequestServiceEndToEndScenario(t *testing.T) {
	f := newRequestFixture(t)

	req, err := f.svc.Create(context.Background(), "stu-1", outingPayload())
	require.NoError(t, err)
	req, err = f.svc.Submit(context.Background(), req.ID, "stu-1")
	require.NoError(t, err)
	assert.Contains(t, *req.GeneratedLetter, "OUTING")
	assert.Contains(t, *req.GeneratedLetter, "medical")

	_, err = f.svc.Review(context.Background(), req.ID, "emp-1", dto.ReviewRequestPayload{Action: models.ReviewActionAccepted})
	require.NoError(t, err)
	assert.Equal(t, 1, f.unread(t, "stu-1"))
	assert.Equal(t, 1, f.unread(t, "adm-1"))
	assert.Equal(t, 1, f.unread(t, "adm-2"))

	_, err = f.svc.Finalize(context.Background(), req.ID, "adm-1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, f.unread(t, "stu-1"))

	_, err = f.notifier.MarkAllAsRead(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Zero(t, f.unread(t, "stu-1"))

	assert.Equal(t, 1.0, counterValue(t, f.metrics, "request_transitions_total", map[string]string{"from": "ACCEPTED", "to": "COMPLETED"}))

	actions := map[string]int{}
	for _, log := range f.users.repo.audits {
		actions[log.Action]++
	}
	assert.Equal(t, 1, actions[models.AuditActionRequestCreate])
	assert.Equal(t, 1, actions[models.AuditActionRequestSubmit])
	assert.Equal(t, 1, actions[models.AuditActionRequestReview])
	assert.Equal(t, 1, actions[models.AuditActionRequestFinalize])
}

func TestRequestServiceSkipsInactiveRecipients(t *testing.T) {
	f := newRequestFixture(t)
	req := f.pending(t)
	f.users.repo.users["stu-1"].Active = false

	_, err := f.svc.Review(context.Background(), req.ID, "emp-1", dto.ReviewRequestPayload{Action: models.ReviewActionAccepted})
	require.NoError(t, err)
	assert.Zero(t, f.unread(t, "stu-1"))
	assert.Equal(t, 1, f.unread(t, "adm-1"))
}

func TestRequestServiceNotificationFailureDoesNotFailTransition(t *testing.T) {
	f := newRequestFixture(t)
	f.notifications.failFor = "emp-1"
	req := f.draft(t)

	submitted, err := f.svc.Submit(context.Background(), req.ID, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, submitted.Status)
	assert.Zero(t, f.unread(t, "emp-1"))
	assert.Equal(t, 1, f.unread(t, "emp-2"))
}
