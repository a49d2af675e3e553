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

const requestColumns = `id, student_id, request_type, form_data, generated_letter, status, employee_review, admin_review, rejection_reason, priority, seq, created_at, updated_at`

// RequestRepository persists permission requests. Every lifecycle write is a
// compare-and-swap on status; a lost race surfaces as sql.ErrNoRows.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a draft request and records its insertion sequence.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	if req.Status == "" {
		req.Status = models.RequestStatusDraft
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}

	const query = `INSERT INTO requests (id, student_id, request_type, form_data, status, priority, created_at, updated_at) VALUES (:id, :student_id, :request_type, :form_data, :status, :priority, :created_at, :updated_at) RETURNING seq`
	rows, err := r.db.NamedQueryContext(ctx, query, req)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&req.Seq); err != nil {
			return fmt.Errorf("scan request seq: %w", err)
		}
	}
	return rows.Err()
}

// FindByID fetches a request by id.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter, newest first with insertion order
// breaking ties.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.EmployeeReviewerID != "" {
		args = append(args, filter.EmployeeReviewerID)
		conditions = append(conditions, fmt.Sprintf("employee_reviewer_id = $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(requestColumns)
	sb.WriteString(" FROM requests")
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, seq ASC")
	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// CountByStatus returns how many requests are currently in status.
func (r *RequestRepository) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM requests WHERE status = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, status); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return total, nil
}

// UpdateDraft replaces the editable fields of a DRAFT request.
func (r *RequestRepository) UpdateDraft(ctx context.Context, req *models.Request) error {
	const query = `UPDATE requests SET request_type = $2, form_data = $3, priority = $4, updated_at = $5 WHERE id = $1 AND status = $6`
	return r.transition(ctx, "update draft request", query,
		req.ID, req.RequestType, req.FormData, req.Priority, req.UpdatedAt, models.RequestStatusDraft)
}

// Submit stores the rendered letter and moves DRAFT to PENDING.
func (r *RequestRepository) Submit(ctx context.Context, id, letter string, at time.Time) error {
	const query = `UPDATE requests SET generated_letter = $2, status = $3, updated_at = $4 WHERE id = $1 AND status = $5`
	return r.transition(ctx, "submit request", query,
		id, letter, models.RequestStatusPending, at, models.RequestStatusDraft)
}

// Review records the single employee decision on a PENDING request.
func (r *RequestRepository) Review(ctx context.Context, id string, next models.RequestStatus, review models.EmployeeReview, rejectionReason *string, at time.Time) error {
	const query = `UPDATE requests SET status = $2, employee_review = $3, employee_reviewer_id = $4, rejection_reason = $5, updated_at = $6 WHERE id = $1 AND status = $7 AND employee_review IS NULL`
	return r.transition(ctx, "review request", query,
		id, next, review, review.ReviewerID, rejectionReason, at, models.RequestStatusPending)
}

// Finalize records the admin review and moves ACCEPTED to COMPLETED.
func (r *RequestRepository) Finalize(ctx context.Context, id string, review models.AdminReview, at time.Time) error {
	const query = `UPDATE requests SET status = $2, admin_review = $3, admin_reviewer_id = $4, updated_at = $5 WHERE id = $1 AND status = $6 AND admin_review IS NULL`
	return r.transition(ctx, "finalize request", query,
		id, models.RequestStatusCompleted, review, review.ReviewerID, at, models.RequestStatusAccepted)
}

// DeleteDraft hard deletes a request that is still a DRAFT.
func (r *RequestRepository) DeleteDraft(ctx context.Context, id string) error {
	const query = `DELETE FROM requests WHERE id = $1 AND status = $2`
	return r.transition(ctx, "delete draft request", query, id, models.RequestStatusDraft)
}

func (r *RequestRepository) transition(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return requireAffected(result, op)
}
