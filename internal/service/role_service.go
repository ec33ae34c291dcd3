package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/refreeg/moderation-api/internal/models"
	appErrors "github.com/refreeg/moderation-api/pkg/errors"
)

type roleStore interface {
	GetRole(ctx context.Context, userID string) (models.UserRole, error)
	SetRole(ctx context.Context, userID string, role models.UserRole) error
	ListUsersWithRoles(ctx context.Context) ([]models.UserWithRole, error)
}

type profileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	SetBlocked(ctx context.Context, id string, blocked bool) error
}

// RoleService resolves and assigns user roles. Users without an explicit
// assignment are plain users.
type RoleService struct {
	repo     roleStore
	profiles profileStore
	audit    auditLogger
	logger   *zap.Logger
}

// NewRoleService constructs the service.
func NewRoleService(repo roleStore, profiles profileStore, audit auditLogger, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{repo: repo, profiles: profiles, audit: audit, logger: logger}
}

// GetRole returns the user's effective role.
func (s *RoleService) GetRole(ctx context.Context, userID string) (models.UserRole, error) {
	role, err := s.repo.GetRole(ctx, userID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to resolve role")
	}
	return role, nil
}

// SetRole assigns a role to a user. Admin only. There is no hierarchy
// check beyond that; an admin may change any assignment including their
// own.
func (s *RoleService) SetRole(ctx context.Context, actor Actor, targetUserID string, role models.UserRole) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	if targetUserID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "target user is required")
	}
	if !role.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if err := s.repo.SetRole(ctx, targetUserID, role); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to set role")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRoleChange,
		Resource:   "role",
		ResourceID: &targetUserID,
		NewValues:  []byte(fmt.Sprintf(`{"role":%q}`, role)),
	})
	return nil
}

// ListUsersWithRoles returns profiles joined with roles and verification
// status for the staff user listing.
func (s *RoleService) ListUsersWithRoles(ctx context.Context, actor Actor) ([]models.UserWithRole, error) {
	if !actor.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	users, err := s.repo.ListUsersWithRoles(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list users")
	}
	return users, nil
}

// SetBlocked flips a profile's blocked flag. Admin only.
func (s *RoleService) SetBlocked(ctx context.Context, actor Actor, targetUserID string, blocked bool) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	if targetUserID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "target user is required")
	}
	profile, err := s.profiles.GetByID(ctx, targetUserID)
	if err != nil {
		return mapStoreError(err, "failed to load profile")
	}
	if profile.IsBlocked == blocked {
		return nil
	}
	if err := s.profiles.SetBlocked(ctx, targetUserID, blocked); err != nil {
		return mapStoreError(err, "failed to update blocked flag")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionUserBlock,
		Resource:   "profile",
		ResourceID: &targetUserID,
		OldValues:  []byte(fmt.Sprintf(`{"is_blocked":%t}`, profile.IsBlocked)),
		NewValues:  []byte(fmt.Sprintf(`{"is_blocked":%t}`, blocked)),
	})
	return nil
}

// IsManagerOrAdmin reports whether the user may access moderation queues.
func (s *RoleService) IsManagerOrAdmin(ctx context.Context, userID string) (bool, error) {
	role, err := s.GetRole(ctx, userID)
	if err != nil {
		return false, err
	}
	return role == models.RoleManager || role == models.RoleAdmin, nil
}

// Bootstrap seeds the configured administrator. Called once at startup;
// an empty id disables seeding.
func (s *RoleService) Bootstrap(ctx context.Context, adminUserID string) error {
	if adminUserID == "" {
		return nil
	}
	role, err := s.repo.GetRole(ctx, adminUserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to resolve bootstrap role")
	}
	if role == models.RoleAdmin {
		return nil
	}
	if err := s.repo.SetRole(ctx, adminUserID, models.RoleAdmin); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to seed bootstrap admin")
	}
	s.logger.Sugar().Infow("bootstrap admin seeded", "user_id", adminUserID)
	return nil
}

func (s *RoleService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "role-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create role audit", zap.Error(err))
	}
}
