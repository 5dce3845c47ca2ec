package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/internal/catalog"
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

// Service manages per-book reservation queues. Queue positions are dense and
// 1-based among QUEUED reservations; approving a reservation never touches
// book availability, which is settled by the separate loan approval.
type Service interface {
	Reserve(ctx context.Context, actor authz.Actor, bookID uuid.UUID) (*models.Reservation, error)
	Cancel(ctx context.Context, actor authz.Actor, reservationID uuid.UUID) (*models.Reservation, error)
	Approve(ctx context.Context, actor authz.Actor, reservationID uuid.UUID) (*models.Reservation, error)
	Get(ctx context.Context, actor authz.Actor, reservationID uuid.UUID) (*models.Reservation, error)
	List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error)
	// ExpireSweep closes every reservation past its expiry and reports how
	// many rows were closed. Safe to run repeatedly.
	ExpireSweep(ctx context.Context, now time.Time) (int, error)
}

// ListParams filters and paginates the reservation listing.
type ListParams struct {
	UserID *uuid.UUID
	BookID *uuid.UUID
	Status *enums.ReservationStatus
	Limit  int
	Cursor string
}

// ListResult wraps returned reservations and the cursor for the next page.
type ListResult struct {
	Items  []models.Reservation `json:"items"`
	Cursor string               `json:"cursor"`
}

// ServiceParams bundles the reservation service dependencies.
type ServiceParams struct {
	DB       txRunner
	Repo     Repository
	Books    catalog.Repository
	Settings settings.Store
	Notifier notifications.Notifier
	Library  config.LibraryConfig
	Logger   *logger.Logger
}

type service struct {
	db       txRunner
	repo     Repository
	books    catalog.Repository
	settings settings.Store
	notifier notifications.Notifier
	library  config.LibraryConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the reservation queue service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reservations repository required")
	}
	if params.Books == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
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
		settings: params.Settings,
		notifier: params.Notifier,
		library:  params.Library,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Reserve(ctx context.Context, actor authz.Actor, bookID uuid.UUID) (*models.Reservation, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if bookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}

	expiryDays := s.settings.GetInt(ctx, settings.KeyReservationExpiryDays, s.library.ReservationExpiryDays)
	expiresAt := s.now().UTC().AddDate(0, 0, expiryDays)

	var reservation *models.Reservation
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		book, err := s.books.WithTx(tx).FindBook(ctx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
		}
		if book.IsAvailable() {
			return pkgerrors.New(pkgerrors.CodeValidation, "book has copies available; request a loan instead")
		}

		active, err := repo.HasActive(ctx, actor.UserID, bookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active reservations")
		}
		if active {
			return pkgerrors.New(pkgerrors.CodeConflict, "an active reservation already exists for this book")
		}

		queued, err := repo.CountQueued(ctx, bookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count queue")
		}

		reservation = &models.Reservation{
			BookID:    bookID,
			UserID:    actor.UserID,
			Status:    enums.ReservationStatusQueued,
			Position:  int(queued) + 1,
			ExpiresAt: &expiresAt,
		}
		if err := repo.Create(ctx, reservation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *service) Cancel(ctx context.Context, actor authz.Actor, reservationID uuid.UUID) (*models.Reservation, error) {
	var reservation *models.Reservation
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.Find(ctx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}
		if err := authz.RequireSelfOrStaff(actor, loaded.UserID); err != nil {
			return err
		}

		moved, err := repo.Transition(ctx, reservationID, enums.ActiveReservationStatuses, enums.ReservationStatusCancelled, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel reservation")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not active")
		}

		if err := repo.Resequence(ctx, loaded.BookID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resequence queue")
		}

		reservation = loaded
		reservation.Status = enums.ReservationStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *service) Approve(ctx context.Context, actor authz.Actor, reservationID uuid.UUID) (*models.Reservation, error) {
	if err := authz.Require(actor, authz.ResourceReservations, authz.ActionProcess); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expiryDays := s.settings.GetInt(ctx, settings.KeyReservationExpiryDays, s.library.ReservationExpiryDays)
	expiresAt := now.AddDate(0, 0, expiryDays)

	var reservation *models.Reservation
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.Find(ctx, reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}

		moved, err := repo.Transition(ctx, reservationID,
			[]enums.ReservationStatus{enums.ReservationStatusQueued},
			enums.ReservationStatusApproved, map[string]any{
				"approved_at": now,
				"expires_at":  expiresAt,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve reservation")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is not queued")
		}

		if err := repo.Resequence(ctx, loaded.BookID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resequence queue")
		}

		reservation = loaded
		reservation.Status = enums.ReservationStatusApproved
		reservation.ApprovedAt = &now
		reservation.ExpiresAt = &expiresAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, reservation.UserID,
		fmt.Sprintf("Your reservation for %q was approved; pick it up before %s.", reservationTitle(reservation), expiresAt.Format("2006-01-02")),
		enums.NotificationCategoryReservation, "")
	return reservation, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, reservationID uuid.UUID) (*models.Reservation, error) {
	reservation, err := s.repo.Find(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	if err := authz.RequireSelfOrStaff(actor, reservation.UserID); err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*ListResult, error) {
	query := listReservationsParams{
		UserID: params.UserID,
		BookID: params.BookID,
		Status: params.Status,
		Limit:  params.Limit,
	}
	// Students only ever see their own reservations.
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

	reservations, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservations")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: reservations, Cursor: cursor}, nil
}

func (s *service) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	var sweepErr error
	var closed []models.Reservation

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		due, err := repo.ListExpired(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired reservations")
		}

		touched := map[uuid.UUID]struct{}{}
		for _, reservation := range due {
			moved, err := repo.Transition(ctx, reservation.ID, enums.ActiveReservationStatuses, enums.ReservationStatusExpired, nil)
			if err != nil {
				sweepErr = multierr.Append(sweepErr, fmt.Errorf("expire reservation %s: %w", reservation.ID, err))
				continue
			}
			if !moved {
				continue
			}
			expired++
			touched[reservation.BookID] = struct{}{}
			closed = append(closed, reservation)
		}

		for bookID := range touched {
			if err := repo.Resequence(ctx, bookID); err != nil {
				sweepErr = multierr.Append(sweepErr, fmt.Errorf("resequence book %s: %w", bookID, err))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Borrowers hear about the lapse only once the rows are committed.
	for i := range closed {
		s.notifier.Notify(ctx, closed[i].UserID,
			fmt.Sprintf("Your reservation for %q expired.", reservationTitle(&closed[i])),
			enums.NotificationCategoryReservation, "")
	}
	return expired, sweepErr
}

func reservationTitle(reservation *models.Reservation) string {
	if reservation.Book != nil {
		return reservation.Book.Title
	}
	return "your book"
}
