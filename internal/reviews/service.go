package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/internal/catalog"
	"github.com/librarium/librarium-backend/internal/notifications"
	"github.com/librarium/librarium-backend/pkg/authz"
	"github.com/librarium/librarium-backend/pkg/db"
	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

// Service handles moderated book reviews. Submitting always lands a review
// in PENDING, even when it overwrites an earlier one, so moderation sees
// every revision. Students read APPROVED rows plus their own; staff read
// everything and move rows between PENDING, APPROVED and HIDDEN.
type Service interface {
	Submit(ctx context.Context, actor authz.Actor, req SubmitRequest) (*models.Review, error)
	Get(ctx context.Context, actor authz.Actor, reviewID uuid.UUID) (*models.Review, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error)
	SetStatus(ctx context.Context, actor authz.Actor, reviewID uuid.UUID, status enums.ReviewStatus) (*models.Review, error)
}

// SubmitRequest creates or rewrites the caller's review of a book.
type SubmitRequest struct {
	BookID uuid.UUID `json:"book_id" validate:"required"`
	Rating int       `json:"rating" validate:"required,min=1,max=5"`
	Text   string    `json:"text"`
}

// ListParams filters and paginates the review listing.
type ListParams struct {
	BookID *uuid.UUID
	Limit  int
	Cursor string
}

// ListResult wraps returned reviews and the cursor for the next page.
type ListResult struct {
	Items  []models.Review `json:"items"`
	Cursor string          `json:"cursor"`
}

// ServiceParams bundles the review service dependencies.
type ServiceParams struct {
	Repo     Repository
	Books    catalog.Repository
	Notifier notifications.Notifier
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	books    catalog.Repository
	notifier notifications.Notifier
	logg     *logger.Logger
}

// NewService wires the review service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reviews repository required")
	}
	if params.Books == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		repo:     params.Repo,
		books:    params.Books,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

func (s *service) Submit(ctx context.Context, actor authz.Actor, req SubmitRequest) (*models.Review, error) {
	if err := authz.Require(actor, authz.ResourceReviews, authz.ActionWrite); err != nil {
		return nil, err
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if req.BookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	if _, err := s.books.FindBook(ctx, req.BookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}

	text := strings.TrimSpace(req.Text)

	existing, err := s.repo.FindByBookAndUser(ctx, req.BookID, actor.UserID)
	switch {
	case err == nil:
		existing.Rating = req.Rating
		existing.Text = text
		existing.Status = enums.ReviewStatusPending
		if err := s.repo.Save(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
		}
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to create
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}

	review := &models.Review{
		BookID: req.BookID,
		UserID: actor.UserID,
		Rating: req.Rating,
		Text:   text,
		Status: enums.ReviewStatusPending,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "book already reviewed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return review, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, reviewID uuid.UUID) (*models.Review, error) {
	review, err := s.repo.Find(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	// Hidden and pending reviews stay between the author and the staff.
	if review.Status != enums.ReviewStatusApproved {
		if err := authz.RequireSelfOrStaff(actor, review.UserID); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
	}
	return review, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error) {
	query := listReviewsParams{
		BookID: params.BookID,
		Limit:  params.Limit,
	}
	if !actor.IsStaff() {
		userID := actor.UserID
		query.VisibleTo = &userID
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	reviews, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: reviews, Cursor: cursor}, nil
}

func (s *service) SetStatus(ctx context.Context, actor authz.Actor, reviewID uuid.UUID, status enums.ReviewStatus) (*models.Review, error) {
	if err := authz.Require(actor, authz.ResourceReviews, authz.ActionProcess); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid review status")
	}

	review, err := s.repo.Find(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}

	moved, err := s.repo.SetStatus(ctx, reviewID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	review.Status = status

	s.notifier.Notify(ctx, review.UserID,
		fmt.Sprintf("Your review for %q was %s.", reviewTitle(review), strings.ToLower(status.String())),
		enums.NotificationCategoryGeneral, "")
	return review, nil
}

func reviewTitle(review *models.Review) string {
	if review.Book != nil {
		return review.Book.Title
	}
	return "a book"
}
