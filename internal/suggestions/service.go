package suggestions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/internal/notifications"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

// Service handles student catalog suggestions. PENDING moves to APPROVED,
// REJECTED, or straight to ADDED; APPROVED may still move to ADDED once the
// title lands in the catalog.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, req CreateRequest) (*models.BookSuggestion, error)
	Approve(ctx context.Context, actor authz.Actor, suggestionID uuid.UUID, adminNote string) (*models.BookSuggestion, error)
	Reject(ctx context.Context, actor authz.Actor, suggestionID uuid.UUID, adminNote string) (*models.BookSuggestion, error)
	MarkAdded(ctx context.Context, actor authz.Actor, suggestionID uuid.UUID, adminNote string) (*models.BookSuggestion, error)
	Get(ctx context.Context, actor authz.Actor, suggestionID uuid.UUID) (*models.BookSuggestion, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error)
}

// CreateRequest proposes a new title for the catalog.
type CreateRequest struct {
	Title    string `json:"title" validate:"required"`
	Author   string `json:"author" validate:"required"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// ListParams filters and paginates the suggestion listing.
type ListParams struct {
	CreatedBy *uuid.UUID
	Status    *enums.SuggestionStatus
	Limit     int
	Cursor    string
}

// ListResult wraps returned suggestions and the cursor for the next page.
type ListResult struct {
	Items  []models.BookSuggestion `json:"items"`
	Cursor string                  `json:"cursor"`
}

// ServiceParams bundles the suggestion service dependencies.
type ServiceParams struct {
	Repo     Repository
	Notifier notifications.Notifier
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	notifier notifications.Notifier
	logg     *logger.Logger
}

// NewService wires the suggestion service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "suggestions repository required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		repo:     params.Repo,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, req CreateRequest) (*models.BookSuggestion, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	title := strings.TrimSpace(req.Title)
	author := strings.TrimSpace(req.Author)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if author == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author required")
	}

	suggestion := &models.BookSuggestion{
		Title:     title,
		Author:    author,
		Category:  strings.TrimSpace(req.Category),
		Reason:    strings.TrimSpace(req.Reason),
		Status:    enums.SuggestionStatusPending,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, suggestion); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create suggestion")
	}
	return suggestion, nil
}

func (s *service) Approve(ctx context.Context, actor authz.Actor, suggestionID uuid.UUID, adminNote string) (*models.BookSuggestion, error) {
	return s.process(ctx, actor, suggestionID, adminNote,
		[]enums.SuggestionStatus{enums.SuggestionStatusPending},
		enums.SuggestionStatusApproved,
		"Your suggestion %q was approved.")
}

func (s *service) Reject(ctx context.Context, actor authz.Actor, suggestionID uuid.UUID, adminNote string) (*models.BookSuggestion, error) {
	return s.process(ctx, actor, suggestionID, adminNote,
		[]enums.SuggestionStatus{enums.SuggestionStatusPending},
		enums.SuggestionStatusRejected,
		"Your suggestion %q was rejected.")
}

func (s *service) MarkAdded(ctx context.Context, actor authz.Actor, suggestionID uuid.UUID, adminNote string) (*models.BookSuggestion, error) {
	return s.process(ctx, actor, suggestionID, adminNote,
		[]enums.SuggestionStatus{enums.SuggestionStatusPending, enums.SuggestionStatusApproved},
		enums.SuggestionStatusAdded,
		"Your suggestion %q was added to the catalog.")
}

func (s *service) process(ctx context.Context, actor authz.Actor, suggestionID uuid.UUID, adminNote string, from []enums.SuggestionStatus, to enums.SuggestionStatus, messageFormat string) (*models.BookSuggestion, error) {
	if err := authz.Require(actor, authz.ResourceSuggestions, authz.ActionProcess); err != nil {
		return nil, err
	}

	suggestion, err := s.repo.Find(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "suggestion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load suggestion")
	}

	updates := map[string]any{}
	note := strings.TrimSpace(adminNote)
	if note != "" {
		updates["admin_note"] = note
	}
	moved, err := s.repo.Transition(ctx, suggestionID, from, to, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update suggestion")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "suggestion already processed")
	}

	suggestion.Status = to
	if note != "" {
		suggestion.AdminNote = note
	}

	s.notifier.Notify(ctx, suggestion.CreatedBy,
		fmt.Sprintf(messageFormat, suggestion.Title),
		enums.NotificationCategorySuggestion, "")
	return suggestion, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, suggestionID uuid.UUID) (*models.BookSuggestion, error) {
	suggestion, err := s.repo.Find(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "suggestion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load suggestion")
	}
	if err := authz.RequireSelfOrStaff(actor, suggestion.CreatedBy); err != nil {
		return nil, err
	}
	return suggestion, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error) {
	query := listSuggestionsParams{
		CreatedBy: params.CreatedBy,
		Status:    params.Status,
		Limit:     params.Limit,
	}
	// Students only ever see their own suggestions.
	if !actor.IsStaff() {
		userID := actor.UserID
		query.CreatedBy = &userID
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	suggestions, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suggestions")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: suggestions, Cursor: cursor}, nil
}
