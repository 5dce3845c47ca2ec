package loans

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

// Repository exposes persistence helpers for loans.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, issue *models.BookIssue) error
	Find(ctx context.Context, id uuid.UUID) (*models.BookIssue, error)
	List(ctx context.Context, params listIssuesParams) ([]models.BookIssue, *pagination.Cursor, error)
	HasOpenIssue(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	// Transition performs a compare-and-swap status move; false means the
	// loan was not in the expected predecessor state.
	Transition(ctx context.Context, id uuid.UUID, from, to enums.IssueStatus, updates map[string]any) (bool, error)
	CountByStatus(ctx context.Context, status enums.IssueStatus) (int64, error)
	CountOverdue(ctx context.Context, today time.Time) (int64, error)
	CountForUser(ctx context.Context, userID uuid.UUID, statuses []enums.IssueStatus) (int64, error)
	ListDueOn(ctx context.Context, day time.Time) ([]models.BookIssue, error)
	ListOverdue(ctx context.Context, today time.Time) ([]models.BookIssue, error)
	TopBooks(ctx context.Context, limit int) ([]BookIssueCount, error)
	CreatedSince(ctx context.Context, since time.Time) ([]models.BookIssue, error)
}

type listIssuesParams struct {
	UserID  *uuid.UUID
	BookID  *uuid.UUID
	Status  *enums.IssueStatus
	Overdue bool
	Today   time.Time
	Limit   int
	Cursor  *pagination.Cursor
}

// BookIssueCount ranks a book by how often it was borrowed.
type BookIssueCount struct {
	BookID uuid.UUID `json:"book_id"`
	Title  string    `json:"title"`
	Count  int64     `json:"count"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a loans repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, issue *models.BookIssue) error {
	if issue.ID == uuid.Nil {
		issue.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(issue).Error
}

func (r *repositoryImpl) Find(ctx context.Context, id uuid.UUID) (*models.BookIssue, error) {
	var issue models.BookIssue
	if err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("User").
		First(&issue, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listIssuesParams) ([]models.BookIssue, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.BookIssue{}).
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
	if params.Overdue {
		query = query.Where("status = ? AND due_date IS NOT NULL AND due_date < ?", enums.IssueStatusIssued, truncateToDay(params.Today))
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var issues []models.BookIssue
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&issues).Error; err != nil {
		return nil, nil, err
	}

	if len(issues) > normalized {
		issues = issues[:normalized]
		last := issues[normalized-1]
		return issues, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return issues, nil, nil
}

func (r *repositoryImpl) HasOpenIssue(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BookIssue{}).
		Where("user_id = ? AND book_id = ? AND status IN ?", userID, bookID,
			[]enums.IssueStatus{enums.IssueStatusRequested, enums.IssueStatusIssued}).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) Transition(ctx context.Context, id uuid.UUID, from, to enums.IssueStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.BookIssue{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CountByStatus(ctx context.Context, status enums.IssueStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BookIssue{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CountOverdue(ctx context.Context, today time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BookIssue{}).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", enums.IssueStatusIssued, truncateToDay(today)).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CountForUser(ctx context.Context, userID uuid.UUID, statuses []enums.IssueStatus) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.BookIssue{}).
		Where("user_id = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Count(&count).Error
	return count, err
}

func (r *repositoryImpl) ListDueOn(ctx context.Context, day time.Time) ([]models.BookIssue, error) {
	var issues []models.BookIssue
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("status = ? AND due_date = ?", enums.IssueStatusIssued, truncateToDay(day)).
		Find(&issues).Error
	return issues, err
}

func (r *repositoryImpl) ListOverdue(ctx context.Context, today time.Time) ([]models.BookIssue, error) {
	var issues []models.BookIssue
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", enums.IssueStatusIssued, truncateToDay(today)).
		Find(&issues).Error
	return issues, err
}

func (r *repositoryImpl) TopBooks(ctx context.Context, limit int) ([]BookIssueCount, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []BookIssueCount
	err := r.db.WithContext(ctx).
		Model(&models.BookIssue{}).
		Select("book_issues.book_id AS book_id, books.title AS title, COUNT(book_issues.id) AS count").
		Joins("JOIN books ON books.id = book_issues.book_id").
		Group("book_issues.book_id, books.title").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CreatedSince(ctx context.Context, since time.Time) ([]models.BookIssue, error) {
	var issues []models.BookIssue
	err := r.db.WithContext(ctx).
		Select("id", "created_at", "status").
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&issues).Error
	return issues, err
}
