package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, profile models.Profile, updatedAt time.Time) error
	SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles the user directory.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// List returns paginated users. Without a role filter only active users are listed.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if filter.Role == nil && filter.Active == nil {
		active := true
		filter.Active = &active
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile replaces the caller's profile.
func (s *UserService) UpdateProfile(ctx context.Context, id string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.repo.UpdateProfile(ctx, id, req.Profile, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	old := user.Profile
	user.Profile = req.Profile
	user.UpdatedAt = now
	s.audit(ctx, id, id, models.AuditActionProfileUpdate, old, req.Profile)
	return user, nil
}

// SetActive activates or deactivates an account on behalf of an admin.
func (s *UserService) SetActive(ctx context.Context, id, actorID string, active bool) (*models.User, error) {
	if id == actorID && !active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Active == active {
		return user, nil
	}
	now := s.now().UTC()
	if err := s.repo.SetActive(ctx, id, active, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	user.Active = active
	user.UpdatedAt = now

	action := models.AuditActionUserDeactivate
	if active {
		action = models.AuditActionUserActivate
	}
	s.audit(ctx, actorID, id, action, map[string]bool{"active": !active}, map[string]bool{"active": active})
	return user, nil
}

func (s *UserService) audit(ctx context.Context, actorID, userID, action string, oldValue, newValue interface{}) {
	oldJSON, _ := json.Marshal(oldValue)
	newJSON, _ := json.Marshal(newValue)
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   models.AuditResourceUser,
		ResourceID: &userID,
		OldValues:  oldJSON,
		NewValues:  newJSON,
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}
