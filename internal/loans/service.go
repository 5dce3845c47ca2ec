package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/internal/catalog"
	"github.com/librarium/librarium-backend/internal/fines"
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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the loan state machine: REQUESTED -> ISSUED -> RETURNED,
// with REQUESTED -> REJECTED as the only other edge.
type Service interface {
	Request(ctx context.Context, actor authz.Actor, bookID uuid.UUID) (*models.BookIssue, error)
	Approve(ctx context.Context, actor authz.Actor, issueID uuid.UUID) (*models.BookIssue, error)
	Reject(ctx context.Context, actor authz.Actor, issueID uuid.UUID) (*models.BookIssue, error)
	Return(ctx context.Context, actor authz.Actor, issueID uuid.UUID) (*models.BookIssue, error)
	Get(ctx context.Context, actor authz.Actor, issueID uuid.UUID) (*models.BookIssue, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error)
}

// ListParams filters and paginates the loan listing.
type ListParams struct {
	UserID  *uuid.UUID
	BookID  *uuid.UUID
	Status  *enums.IssueStatus
	Overdue bool
	Limit   int
	Cursor  string
}

// ListResult wraps returned loans and the cursor for the next page.
type ListResult struct {
	Items  []models.BookIssue `json:"items"`
	Cursor string             `json:"cursor"`
}

// ServiceParams bundles the loan service dependencies.
type ServiceParams struct {
	DB       txRunner
	Repo     Repository
	Books    catalog.Repository
	Fines    fines.Repository
	Settings settings.Store
	Notifier notifications.Notifier
	Library  config.LibraryConfig
	Logger   *logger.Logger
}

type service struct {
	db       txRunner
	repo     Repository
	books    catalog.Repository
	fines    fines.Repository
	settings settings.Store
	notifier notifications.Notifier
	library  config.LibraryConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the loan lifecycle engine.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "loans repository required")
	}
	if params.Books == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
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
		books:    params.Books,
		fines:    params.Fines,
		settings: params.Settings,
		notifier: params.Notifier,
		library:  params.Library,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, actor authz.Actor, bookID uuid.UUID) (*models.BookIssue, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}

	if _, err := s.books.FindBook(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}

	var issue *models.BookIssue
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		open, err := repo.HasOpenIssue(ctx, actor.UserID, bookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open loans")
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeConflict, "an open loan already exists for this book")
		}

		issue = &models.BookIssue{
			UserID: actor.UserID,
			BookID: bookID,
			Status: enums.IssueStatusRequested,
		}
		if err := repo.Create(ctx, issue); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loan request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *service) Approve(ctx context.Context, actor authz.Actor, issueID uuid.UUID) (*models.BookIssue, error) {
	if err := authz.Require(actor, authz.ResourceIssues, authz.ActionProcess); err != nil {
		return nil, err
	}

	today := truncateToDay(s.now())
	period := s.settings.GetInt(ctx, settings.KeyReturnPeriodDays, s.library.ReturnPeriodDays)
	due := today.AddDate(0, 0, period)

	var issue *models.BookIssue
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.Find(ctx, issueID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}

		moved, err := repo.Transition(ctx, issueID, enums.IssueStatusRequested, enums.IssueStatusIssued, map[string]any{
			"issue_date": today,
			"due_date":   due,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve loan")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "loan is not awaiting approval")
		}

		taken, err := s.books.WithTx(tx).TakeCopy(ctx, loaded.BookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve copy")
		}
		if !taken {
			return pkgerrors.New(pkgerrors.CodeUnavailable, "no copies available")
		}

		issue = loaded
		issue.Status = enums.IssueStatusIssued
		issue.IssueDate = &today
		issue.DueDate = &due
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, issue.UserID,
		fmt.Sprintf("Your loan for %q was approved; due back on %s.", bookTitle(issue), due.Format("2006-01-02")),
		enums.NotificationCategoryIssue, "")
	return issue, nil
}

func (s *service) Reject(ctx context.Context, actor authz.Actor, issueID uuid.UUID) (*models.BookIssue, error) {
	if err := authz.Require(actor, authz.ResourceIssues, authz.ActionProcess); err != nil {
		return nil, err
	}

	var issue *models.BookIssue
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.Find(ctx, issueID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}

		moved, err := repo.Transition(ctx, issueID, enums.IssueStatusRequested, enums.IssueStatusRejected, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject loan")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "loan is not awaiting approval")
		}

		issue = loaded
		issue.Status = enums.IssueStatusRejected
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, issue.UserID,
		fmt.Sprintf("Your loan request for %q was rejected.", bookTitle(issue)),
		enums.NotificationCategoryIssue, "")
	return issue, nil
}

func (s *service) Return(ctx context.Context, actor authz.Actor, issueID uuid.UUID) (*models.BookIssue, error) {
	if err := authz.Require(actor, authz.ResourceIssues, authz.ActionProcess); err != nil {
		return nil, err
	}

	now := s.now()
	today := truncateToDay(now)
	perDay := s.settings.GetDecimal(ctx, settings.KeyFinePerDay, s.library.FinePerDayDecimal())

	var issue *models.BookIssue
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.Find(ctx, issueID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}

		moved, err := repo.Transition(ctx, issueID, enums.IssueStatusIssued, enums.IssueStatusReturned, map[string]any{
			"return_date": today,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return loan")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "loan is not issued")
		}

		if _, err := s.books.WithTx(tx).AdjustAvailability(ctx, loaded.BookID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore copy")
		}

		amount := ComputeFine(loaded.DueDate, &today, now, perDay)
		if amount.IsPositive() {
			if err := s.fines.WithTx(tx).UpsertForIssue(ctx, issueID, amount); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record fine")
			}
		}

		issue = loaded
		issue.Status = enums.IssueStatusReturned
		issue.ReturnDate = &today
		return nil
	})
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Your return of %q was recorded.", bookTitle(issue))
	if amount := ComputeFine(issue.DueDate, &today, now, perDay); amount.IsPositive() {
		message = fmt.Sprintf("Your return of %q was recorded with a fine of %s.", bookTitle(issue), amount.StringFixed(2))
	}
	s.notifier.Notify(ctx, issue.UserID, message, enums.NotificationCategoryFine, "")
	return issue, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, issueID uuid.UUID) (*models.BookIssue, error) {
	issue, err := s.repo.Find(ctx, issueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
	}
	if err := authz.RequireSelfOrStaff(actor, issue.UserID); err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error) {
	query := listIssuesParams{
		UserID:  params.UserID,
		BookID:  params.BookID,
		Status:  params.Status,
		Overdue: params.Overdue,
		Today:   s.now(),
		Limit:   params.Limit,
	}
	// Students only ever see their own loans.
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

	issues, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loans")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: issues, Cursor: cursor}, nil
}

func bookTitle(issue *models.BookIssue) string {
	if issue.Book != nil {
		return issue.Book.Title
	}
	return "your book"
}
