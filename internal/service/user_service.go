package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/atms-platform/atms-api/internal/models"
	appErrors "github.com/atms-platform/atms-api/pkg/errors"
	"github.com/atms-platform/atms-api/pkg/mailer"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type reconcileTrigger interface {
	Trigger()
}

// ApproveUserRequest assigns the approved role to a pending account.
type ApproveUserRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN TRAINER TRAINEE"`
}

// UpdateUserRequest carries admin edits to an account.
type UpdateUserRequest struct {
	FullName string `json:"full_name"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN TRAINER TRAINEE"`
	Active   *bool  `json:"active"`
}

// UserService covers admin-facing account management, including the
// approval workflow for self-registered accounts.
type UserService struct {
	repo       userRepository
	activity   activityWriter
	mail       mailer.Mailer
	reconciler reconcileTrigger
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewUserService constructs UserService. The mailer and reconciler may be
// nil when those subsystems are disabled.
func NewUserService(repo userRepository, activity activityWriter, mail mailer.Mailer, reconciler reconcileTrigger, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if mail == nil {
		mail = mailer.NopMailer{}
	}
	return &UserService{repo: repo, activity: activity, mail: mail, reconciler: reconciler, validator: validate, logger: logger}
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// ListPending returns accounts awaiting approval.
func (s *UserService) ListPending(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	pending := models.RolePending
	filter.Role = &pending
	return s.List(ctx, filter)
}

// Get returns a single user.
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

// Approve promotes a pending account to the given role, notifies the user
// by email and nudges the reconciler in case a draft course names them.
// The email is best effort; approval stands even when sending fails.
func (s *UserService) Approve(ctx context.Context, adminID, userID string, req ApproveUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RolePending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user is not awaiting approval")
	}

	user.Role = models.UserRole(req.Role)
	user.Active = true
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve user")
	}

	s.audit(ctx, adminID, models.AuditActionUserApprove, userID, fmt.Sprintf(`{"role":%q}`, req.Role))
	s.recordActivity(ctx, user.FullName, "account approved", string(user.Role))

	if err := s.mail.Send(mailer.Message{
		ToName:    user.FullName,
		ToAddress: user.Email,
		Subject:   "Your account has been approved",
		Body:      fmt.Sprintf("Hi %s,\n\nYour account has been approved with the %s role. You can now sign in.", user.FullName, strings.ToLower(req.Role)),
	}); err != nil {
		s.logger.Warn("approval email failed", zap.String("user_id", userID), zap.Error(err))
	}

	if user.Role == models.RoleTrainer && s.reconciler != nil {
		s.reconciler.Trigger()
	}
	return user, nil
}

// Reject removes a pending account entirely so the email can register again.
func (s *UserService) Reject(ctx context.Context, adminID, userID string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role != models.RolePending {
		return appErrors.Clone(appErrors.ErrConflict, "user is not awaiting approval")
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject user")
	}

	s.audit(ctx, adminID, models.AuditActionUserReject, userID, `{"status":"rejected"}`)

	if err := s.mail.Send(mailer.Message{
		ToName:    user.FullName,
		ToAddress: user.Email,
		Subject:   "Your registration was not approved",
		Body:      fmt.Sprintf("Hi %s,\n\nYour registration request was not approved. Contact the administrator for details.", user.FullName),
	}); err != nil {
		s.logger.Warn("rejection email failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// Update applies admin edits to an account. Role and name changes can affect
// instructor resolution, so the reconciler is triggered afterwards.
func (s *UserService) Update(ctx context.Context, adminID, userID string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	nameChanged := false
	if req.FullName != "" && req.FullName != user.FullName {
		user.FullName = strings.TrimSpace(req.FullName)
		nameChanged = true
	}
	roleChanged := false
	if req.Role != "" && models.UserRole(req.Role) != user.Role {
		user.Role = models.UserRole(req.Role)
		roleChanged = true
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.audit(ctx, adminID, models.AuditActionUserUpdate, userID, fmt.Sprintf(`{"role":%q,"active":%t}`, user.Role, user.Active))

	if (nameChanged || roleChanged) && user.Role == models.RoleTrainer && s.reconciler != nil {
		s.reconciler.Trigger()
	}
	return user, nil
}

// Delete deactivates an account and revokes its sessions. Accounts are kept
// as rows so historical grades and activity stay attributable.
func (s *UserService) Delete(ctx context.Context, adminID, userID string) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions of deactivated user", zap.Error(err))
	}
	s.audit(ctx, adminID, models.AuditActionUserDelete, userID, `{"status":"deactivated"}`)
	return nil
}

func (s *UserService) audit(ctx context.Context, adminID, action, resourceID, newValues string) {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		NewValues:  []byte(newValues),
	}
	if adminID != "" {
		entry.UserID = &adminID
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *UserService) recordActivity(ctx context.Context, userName, action, details string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Insert(ctx, &models.ActivityLog{UserName: userName, Action: action, Details: details}); err != nil {
		s.logger.Warn("failed to record activity", zap.Error(err))
	}
}
