package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

// Repository exposes persistence helpers for reservation queues.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reservation *models.Reservation) error
	Find(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	List(ctx context.Context, params listReservationsParams) ([]models.Reservation, *pagination.Cursor, error)
	HasActive(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	CountQueued(ctx context.Context, bookID uuid.UUID) (int64, error)
	CountActiveForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// Transition performs a compare-and-swap status move; false means the
	// reservation was not in an expected predecessor state.
	Transition(ctx context.Context, id uuid.UUID, from []enums.ReservationStatus, to enums.ReservationStatus, updates map[string]any) (bool, error)
	// Resequence renumbers a book's QUEUED reservations densely from 1 in
	// creation order.
	Resequence(ctx context.Context, bookID uuid.UUID) error
	ListExpired(ctx context.Context, now time.Time) ([]models.Reservation, error)
}

type listReservationsParams struct {
	UserID *uuid.UUID
	BookID *uuid.UUID
	Status *enums.ReservationStatus
	Limit  int
	Cursor *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a reservations repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, reservation *models.Reservation) error {
	if reservation.ID == uuid.Nil {
		reservation.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repositoryImpl) Find(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("User").
		First(&reservation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listReservationsParams) ([]models.Reservation, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Preload("Book").
		Preload("User")
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.BookID != nil {
		query = query.Where("book_id = ?", *params.BookID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var reservations []models.Reservation
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&reservations).Error; err != nil {
		return nil, nil, err
	}

	if len(reservations) > normalized {
		reservations = reservations[:normalized]
		last := reservations[normalized-1]
		return reservations, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return reservations, nil, nil
}

func (r *repositoryImpl) HasActive(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("user_id = ? AND book_id = ? AND status IN ?", userID, bookID, enums.ActiveReservationStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) CountQueued(ctx context.Context, bookID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("book_id = ? AND status = ?", bookID, enums.ReservationStatusQueued).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CountActiveForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("user_id = ? AND status IN ?", userID, enums.ActiveReservationStatuses).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) Transition(ctx context.Context, id uuid.UUID, from []enums.ReservationStatus, to enums.ReservationStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Resequence(ctx context.Context, bookID uuid.UUID) error {
	var queued []models.Reservation
	if err := r.db.WithContext(ctx).
		Select("id", "position").
		Where("book_id = ? AND status = ?", bookID, enums.ReservationStatusQueued).
		Order("created_at ASC, id ASC").
		Find(&queued).Error; err != nil {
		return err
	}
	for index, reservation := range queued {
		position := index + 1
		if reservation.Position == position {
			continue
		}
		if err := r.db.WithContext(ctx).
			Model(&models.Reservation{}).
			Where("id = ?", reservation.ID).
			UpdateColumn("position", position).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repositoryImpl) ListExpired(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?", enums.ActiveReservationStatuses, now).
		Order("created_at ASC").
		Find(&reservations).Error
	return reservations, err
}
