package extensions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

// Repository exposes persistence helpers for due date extension requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnExtensionRequest) error
	Find(ctx context.Context, id uuid.UUID) (*models.ReturnExtensionRequest, error)
	List(ctx context.Context, params listExtensionsParams) ([]models.ReturnExtensionRequest, *pagination.Cursor, error)
	HasPending(ctx context.Context, issueID uuid.UUID) (bool, error)
	// Transition performs a compare-and-swap status move; false means the
	// request was not pending.
	Transition(ctx context.Context, id uuid.UUID, to enums.ExtensionStatus, updates map[string]any) (bool, error)
}

type listExtensionsParams struct {
	UserID *uuid.UUID
	Status *enums.ExtensionStatus
	Limit  int
	Cursor *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an extensions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, request *models.ReturnExtensionRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) Find(ctx context.Context, id uuid.UUID) (*models.ReturnExtensionRequest, error) {
	var request models.ReturnExtensionRequest
	if err := r.db.WithContext(ctx).
		Preload("Issue").
		Preload("Issue.Book").
		First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listExtensionsParams) ([]models.ReturnExtensionRequest, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.ReturnExtensionRequest{}).
		Preload("Issue").
		Preload("Issue.Book")
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var requests []models.ReturnExtensionRequest
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&requests).Error; err != nil {
		return nil, nil, err
	}

	if len(requests) > normalized {
		requests = requests[:normalized]
		last := requests[normalized-1]
		return requests, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return requests, nil, nil
}

func (r *repositoryImpl) HasPending(ctx context.Context, issueID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReturnExtensionRequest{}).
		Where("issue_id = ? AND status = ?", issueID, enums.ExtensionStatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) Transition(ctx context.Context, id uuid.UUID, to enums.ExtensionStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.ReturnExtensionRequest{}).
		Where("id = ? AND status = ?", id, enums.ExtensionStatusPending).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
