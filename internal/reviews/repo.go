package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

// Repository exposes persistence helpers for book reviews.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.Review) error
	Save(ctx context.Context, review *models.Review) error
	Find(ctx context.Context, id uuid.UUID) (*models.Review, error)
	FindByBookAndUser(ctx context.Context, bookID, userID uuid.UUID) (*models.Review, error)
	List(ctx context.Context, params listReviewsParams) ([]models.Review, *pagination.Cursor, error)
	SetStatus(ctx context.Context, id uuid.UUID, status enums.ReviewStatus) (bool, error)
}

type listReviewsParams struct {
	BookID *uuid.UUID
	// VisibleTo restricts the listing to APPROVED rows plus the given
	// user's own. Nil means every row is visible.
	VisibleTo *uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a reviews repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repositoryImpl) Save(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", review.ID).
		Updates(map[string]any{
			"rating": review.Rating,
			"text":   review.Text,
			"status": review.Status,
		}).Error
}

func (r *repositoryImpl) Find(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).Preload("Book").First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repositoryImpl) FindByBookAndUser(ctx context.Context, bookID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		First(&review, "book_id = ? AND user_id = ?", bookID, userID).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listReviewsParams) ([]models.Review, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Review{})
	if params.BookID != nil {
		query = query.Where("book_id = ?", *params.BookID)
	}
	if params.VisibleTo != nil {
		query = query.Where("(status = ? OR user_id = ?)", enums.ReviewStatusApproved, *params.VisibleTo)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var reviews []models.Review
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&reviews).Error; err != nil {
		return nil, nil, err
	}

	if len(reviews) > normalized {
		reviews = reviews[:normalized]
		last := reviews[normalized-1]
		return reviews, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return reviews, nil, nil
}

func (r *repositoryImpl) SetStatus(ctx context.Context, id uuid.UUID, status enums.ReviewStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
