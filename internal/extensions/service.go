package extensions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/internal/fines"
	"github.com/librarium/librarium-backend/internal/loans"
	"github.com/librarium/librarium-backend/internal/notifications"
	"github.com/librarium/librarium-backend/internal/settings"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/config"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

const maxExtensionDays = 30

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service handles due date extension requests. Approving one pushes the
// loan's due date forward and recomputes the attached fine from scratch;
// the previous amount is replaced, never added to.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, req CreateRequest) (*models.ReturnExtensionRequest, error)
	Approve(ctx context.Context, actor authz.Actor, requestID uuid.UUID) (*models.ReturnExtensionRequest, error)
	Reject(ctx context.Context, actor authz.Actor, requestID uuid.UUID) (*models.ReturnExtensionRequest, error)
	Get(ctx context.Context, actor authz.Actor, requestID uuid.UUID) (*models.ReturnExtensionRequest, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error)
}

// CreateRequest petitions for more time on an issued loan.
type CreateRequest struct {
	IssueID uuid.UUID `json:"issue_id" validate:"required"`
	Days    int       `json:"days" validate:"required,min=1"`
	Reason  string    `json:"reason"`
}

// ListParams filters and paginates the extension listing.
type ListParams struct {
	UserID *uuid.UUID
	Status *enums.ExtensionStatus
	Limit  int
	Cursor string
}

// ListResult wraps returned requests and the cursor for the next page.
type ListResult struct {
	Items  []models.ReturnExtensionRequest `json:"items"`
	Cursor string                          `json:"cursor"`
}

// ServiceParams bundles the extension service dependencies.
type ServiceParams struct {
	DB       txRunner
	Repo     Repository
	Loans    loans.Repository
	Fines    fines.Repository
	Settings settings.Store
	Notifier notifications.Notifier
	Library  config.LibraryConfig
	Logger   *logger.Logger
}

type service struct {
	db       txRunner
	repo     Repository
	loans    loans.Repository
	fines    fines.Repository
	settings settings.Store
	notifier notifications.Notifier
	library  config.LibraryConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the extension request service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "extensions repository required")
	}
	if params.Loans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "loans repository required")
	}
	if params.Fines == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fines repository required")
	}
	if params.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settings store required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		loans:    params.Loans,
		fines:    params.Fines,
		settings: params.Settings,
		notifier: params.Notifier,
		library:  params.Library,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, req CreateRequest) (*models.ReturnExtensionRequest, error) {
	if req.IssueID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "issue id required")
	}
	if req.Days <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "days must be positive")
	}
	if req.Days > maxExtensionDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("days must not exceed %d", maxExtensionDays))
	}

	issue, err := s.loans.Find(ctx, req.IssueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
	}
	if err := authz.RequireSelfOrStaff(actor, issue.UserID); err != nil {
		return nil, err
	}
	if issue.Status != enums.IssueStatusIssued {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only issued loans can be extended")
	}

	var request *models.ReturnExtensionRequest
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		pending, err := repo.HasPending(ctx, req.IssueID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending requests")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeConflict, "an extension request is already pending for this loan")
		}

		request = &models.ReturnExtensionRequest{
			IssueID:       req.IssueID,
			UserID:        issue.UserID,
			DaysRequested: req.Days,
			Reason:        strings.TrimSpace(req.Reason),
			Status:        enums.ExtensionStatusPending,
		}
		if err := repo.Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create extension request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) Approve(ctx context.Context, actor authz.Actor, requestID uuid.UUID) (*models.ReturnExtensionRequest, error) {
	if err := authz.Require(actor, authz.ResourceExtensions, authz.ActionProcess); err != nil {
		return nil, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	perDay := s.settings.GetDecimal(ctx, settings.KeyFinePerDay, s.library.FinePerDayDecimal())

	var request *models.ReturnExtensionRequest
	var newDue time.Time
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loanRepo := s.loans.WithTx(tx)

		loaded, err := repo.Find(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "extension request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load extension request")
		}

		issue, err := loanRepo.Find(ctx, loaded.IssueID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}

		moved, err := repo.Transition(ctx, requestID, enums.ExtensionStatusApproved, map[string]any{
			"processed_by": actor.UserID,
			"processed_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve extension")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "extension request already processed")
		}

		base := today
		if issue.DueDate != nil {
			base = *issue.DueDate
		}
		newDue = base.AddDate(0, 0, loaded.DaysRequested)

		// The due date move is conditional on the loan still being issued.
		extended, err := loanRepo.Transition(ctx, issue.ID, enums.IssueStatusIssued, enums.IssueStatusIssued, map[string]any{
			"due_date": newDue,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend due date")
		}
		if !extended {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "loan is no longer issued")
		}

		amount := loans.ComputeFine(&newDue, nil, now, perDay)
		if err := s.fines.WithTx(tx).UpsertForIssue(ctx, issue.ID, amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute fine")
		}

		request = loaded
		request.Status = enums.ExtensionStatusApproved
		processedBy := actor.UserID
		request.ProcessedBy = &processedBy
		request.ProcessedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, request.UserID,
		fmt.Sprintf("Your extension request was approved; the loan is now due on %s.", newDue.Format("2006-01-02")),
		enums.NotificationCategoryExtension, "")
	return request, nil
}

func (s *service) Reject(ctx context.Context, actor authz.Actor, requestID uuid.UUID) (*models.ReturnExtensionRequest, error) {
	if err := authz.Require(actor, authz.ResourceExtensions, authz.ActionProcess); err != nil {
		return nil, err
	}

	now := s.now()
	var request *models.ReturnExtensionRequest
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.Find(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "extension request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load extension request")
		}

		moved, err := repo.Transition(ctx, requestID, enums.ExtensionStatusRejected, map[string]any{
			"processed_by": actor.UserID,
			"processed_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject extension")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "extension request already processed")
		}

		request = loaded
		request.Status = enums.ExtensionStatusRejected
		processedBy := actor.UserID
		request.ProcessedBy = &processedBy
		request.ProcessedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, request.UserID,
		"Your extension request was rejected.",
		enums.NotificationCategoryExtension, "")
	return request, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, requestID uuid.UUID) (*models.ReturnExtensionRequest, error) {
	request, err := s.repo.Find(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "extension request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load extension request")
	}
	if err := authz.RequireSelfOrStaff(actor, request.UserID); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error) {
	query := listExtensionsParams{
		UserID: params.UserID,
		Status: params.Status,
		Limit:  params.Limit,
	}
	// Students only ever see their own requests.
	if !actor.IsStaff() {
		userID := actor.UserID
		query.UserID = &userID
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	requests, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list extension requests")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: requests, Cursor: cursor}, nil
}
