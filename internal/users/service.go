package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/internal/audit"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/config"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/pagination"
	"github.com/librarium/librarium-backend/pkg/security"
)

// Service handles user administration. Role changes, activation toggles, and
// deletions are restricted to the owner role and always audited.
type Service interface {
	Get(ctx context.Context, actor authz.Actor, userID uuid.UUID) (UserSummary, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error)
	UpdateRole(ctx context.Context, actor authz.Actor, userID uuid.UUID, role enums.Role, ip string) (UserSummary, error)
	ToggleActivation(ctx context.Context, actor authz.Actor, userID uuid.UUID, ip string) (UserSummary, error)
	Delete(ctx context.Context, actor authz.Actor, userID uuid.UUID, ip string) error
	ChangePassword(ctx context.Context, actor authz.Actor, req ChangePasswordRequest, ip string) error
}

// ListParams filters and paginates the user listing.
type ListParams struct {
	Search     string
	Role       *enums.Role
	ActiveOnly bool
	Limit      int
	Cursor     string
}

// ListResult wraps returned users and the cursor for the next page.
type ListResult struct {
	Items  []UserSummary `json:"items"`
	Cursor string        `json:"cursor"`
}

// ChangePasswordRequest swaps the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ServiceParams bundles the user service dependencies.
type ServiceParams struct {
	Repo     Repository
	Auditor  audit.Recorder
	Password config.PasswordConfig
	Logger   *logger.Logger
}

type service struct {
	repo        Repository
	auditor     audit.Recorder
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService wires the user administration service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Auditor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit recorder required")
	}
	return &service{
		repo:        params.Repo,
		auditor:     params.Auditor,
		passwordCfg: params.Password,
		logg:        params.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, userID uuid.UUID) (UserSummary, error) {
	if actor.UserID != userID {
		if err := authz.Require(actor, authz.ResourceUsers, authz.ActionRead); err != nil {
			return UserSummary{}, err
		}
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return UserSummary{}, err
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error) {
	if err := authz.Require(actor, authz.ResourceUsers, authz.ActionRead); err != nil {
		return nil, err
	}

	query := listUsersParams{
		Search:     params.Search,
		Role:       params.Role,
		ActiveOnly: params.ActiveOnly,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	users, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	items := make([]UserSummary, 0, len(users))
	for i := range users {
		items = append(items, FromModel(&users[i]))
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: items, Cursor: cursor}, nil
}

func (s *service) UpdateRole(ctx context.Context, actor authz.Actor, userID uuid.UUID, role enums.Role, ip string) (UserSummary, error) {
	if err := authz.Require(actor, authz.ResourceUsers, authz.ActionWrite); err != nil {
		return UserSummary{}, err
	}
	if !role.IsValid() {
		return UserSummary{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if actor.UserID == userID {
		return UserSummary{}, pkgerrors.New(pkgerrors.CodeValidation, "cannot change your own role")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return UserSummary{}, err
	}

	updated, err := s.repo.UpdateRole(ctx, userID, role)
	if err != nil {
		return UserSummary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	if !updated {
		return UserSummary{}, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	if user.Profile != nil {
		user.Profile.Role = role
	}

	s.audit(ctx, actor, enums.AuditActionUpdateUser,
		fmt.Sprintf("set role of %s to %s", user.Username, role), ip)
	return FromModel(user), nil
}

func (s *service) ToggleActivation(ctx context.Context, actor authz.Actor, userID uuid.UUID, ip string) (UserSummary, error) {
	if err := authz.Require(actor, authz.ResourceUsers, authz.ActionWrite); err != nil {
		return UserSummary{}, err
	}
	if actor.UserID == userID {
		return UserSummary{}, pkgerrors.New(pkgerrors.CodeValidation, "cannot toggle your own activation")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return UserSummary{}, err
	}

	next := !user.IsActive
	updated, err := s.repo.SetActive(ctx, userID, next)
	if err != nil {
		return UserSummary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle activation")
	}
	if !updated {
		return UserSummary{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	user.IsActive = next

	state := "deactivated"
	if next {
		state = "activated"
	}
	s.audit(ctx, actor, enums.AuditActionToggleActivation,
		fmt.Sprintf("%s %s", state, user.Username), ip)
	return FromModel(user), nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, userID uuid.UUID, ip string) error {
	if err := authz.Require(actor, authz.ResourceUsers, authz.ActionWrite); err != nil {
		return err
	}
	if actor.UserID == userID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete your own account")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	s.audit(ctx, actor, enums.AuditActionDeleteUser,
		fmt.Sprintf("deleted %s", user.Username), ip)
	return nil
}

func (s *service) ChangePassword(ctx context.Context, actor authz.Actor, req ChangePasswordRequest, ip string) error {
	if len(req.NewPassword) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password must be at least 8 characters")
	}

	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return err
	}

	valid, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}

	s.auditor.Record(ctx, audit.Actor{UserID: &user.ID, Username: user.Username},
		enums.AuditActionChangePassword, "password changed", ip)
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

// audit resolves the acting user's username before writing the trail entry.
func (s *service) audit(ctx context.Context, actor authz.Actor, action enums.AuditAction, details, ip string) {
	username := ""
	if acting, err := s.repo.Find(ctx, actor.UserID); err == nil {
		username = acting.Username
	}
	actorID := actor.UserID
	s.auditor.Record(ctx, audit.Actor{UserID: &actorID, Username: username}, action, details, ip)
}
