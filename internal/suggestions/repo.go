package suggestions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

// Repository exposes persistence helpers for book suggestions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, suggestion *models.BookSuggestion) error
	Find(ctx context.Context, id uuid.UUID) (*models.BookSuggestion, error)
	List(ctx context.Context, params listSuggestionsParams) ([]models.BookSuggestion, *pagination.Cursor, error)
	// Transition performs a compare-and-swap status move; false means the
	// suggestion was not in an expected predecessor state.
	Transition(ctx context.Context, id uuid.UUID, from []enums.SuggestionStatus, to enums.SuggestionStatus, updates map[string]any) (bool, error)
}

type listSuggestionsParams struct {
	CreatedBy *uuid.UUID
	Status    *enums.SuggestionStatus
	Limit     int
	Cursor    *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a suggestions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, suggestion *models.BookSuggestion) error {
	if suggestion.ID == uuid.Nil {
		suggestion.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(suggestion).Error
}

func (r *repositoryImpl) Find(ctx context.Context, id uuid.UUID) (*models.BookSuggestion, error) {
	var suggestion models.BookSuggestion
	if err := r.db.WithContext(ctx).First(&suggestion, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &suggestion, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listSuggestionsParams) ([]models.BookSuggestion, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.BookSuggestion{})
	if params.CreatedBy != nil {
		query = query.Where("created_by = ?", *params.CreatedBy)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var suggestions []models.BookSuggestion
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&suggestions).Error; err != nil {
		return nil, nil, err
	}

	if len(suggestions) > normalized {
		suggestions = suggestions[:normalized]
		last := suggestions[normalized-1]
		return suggestions, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return suggestions, nil, nil
}

func (r *repositoryImpl) Transition(ctx context.Context, id uuid.UUID, from []enums.SuggestionStatus, to enums.SuggestionStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.BookSuggestion{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
