package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

// Repository exposes persistence helpers for the catalog entities.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateAuthor(ctx context.Context, author *models.Author) error
	FindAuthor(ctx context.Context, id uuid.UUID) (*models.Author, error)
	ListAuthors(ctx context.Context) ([]models.Author, error)
	DeleteAuthor(ctx context.Context, id uuid.UUID) (int64, error)

	CreateCategory(ctx context.Context, category *models.Category) error
	FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error)

	CreateBook(ctx context.Context, book *models.Book) error
	FindBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	FindBookByISBN(ctx context.Context, isbn string) (*models.Book, error)
	ListBooks(ctx context.Context, params listBooksParams) ([]models.Book, *pagination.Cursor, error)
	UpdateBook(ctx context.Context, book *models.Book) error
	DeleteBook(ctx context.Context, id uuid.UUID) (int64, error)

	// TakeCopy decrements availability only when a copy is free.
	TakeCopy(ctx context.Context, bookID uuid.UUID) (bool, error)
	// AdjustAvailability applies a relative change clamped into [0, quantity].
	AdjustAvailability(ctx context.Context, bookID uuid.UUID, delta int) (int64, error)

	CountBooks(ctx context.Context) (int64, error)
	CategoryDistribution(ctx context.Context) ([]CategoryCount, error)
}

type listBooksParams struct {
	Search        string
	CategoryID    *uuid.UUID
	AuthorID      *uuid.UUID
	AvailableOnly bool
	Limit         int
	Cursor        *pagination.Cursor
}

// CategoryCount is one slice of the category distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateAuthor(ctx context.Context, author *models.Author) error {
	if author.ID == uuid.Nil {
		author.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(author).Error
}

func (r *repositoryImpl) FindAuthor(ctx context.Context, id uuid.UUID) (*models.Author, error) {
	var author models.Author
	if err := r.db.WithContext(ctx).First(&author, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *repositoryImpl) ListAuthors(ctx context.Context) ([]models.Author, error) {
	var authors []models.Author
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&authors).Error; err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *repositoryImpl) DeleteAuthor(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Author{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *repositoryImpl) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repositoryImpl) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repositoryImpl) DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Category{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CreateBook(ctx context.Context, book *models.Book) error {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(book).Error
}

func (r *repositoryImpl) FindBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repositoryImpl) FindBookByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repositoryImpl) ListBooks(ctx context.Context, params listBooksParams) ([]models.Book, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Preload("Author").
		Preload("Category")
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("title LIKE ? OR isbn LIKE ?", like, like)
	}
	if params.CategoryID != nil {
		query = query.Where("category_id = ?", *params.CategoryID)
	}
	if params.AuthorID != nil {
		query = query.Where("author_id = ?", *params.AuthorID)
	}
	if params.AvailableOnly {
		query = query.Where("available_count > 0")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var books []models.Book
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&books).Error; err != nil {
		return nil, nil, err
	}

	if len(books) > normalized {
		books = books[:normalized]
		last := books[normalized-1]
		return books, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return books, nil, nil
}

func (r *repositoryImpl) UpdateBook(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]any{
			"isbn":           book.ISBN,
			"title":          book.Title,
			"author_id":      book.AuthorID,
			"category_id":    book.CategoryID,
			"quantity":       book.Quantity,
			"description":    book.Description,
			"published_year": book.PublishedYear,
		}).Error; err != nil {
		return err
	}
	// Re-clamp in case quantity shrank below the current available count.
	_, err := r.AdjustAvailability(ctx, book.ID, 0)
	return err
}

func (r *repositoryImpl) DeleteBook(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Book{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) TakeCopy(ctx context.Context, bookID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND available_count > 0", bookID).
		UpdateColumn("available_count", gorm.Expr("available_count - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) AdjustAvailability(ctx context.Context, bookID uuid.UUID, delta int) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
UPDATE books
SET available_count = CASE
  WHEN available_count + ? < 0 THEN 0
  WHEN available_count + ? > quantity THEN quantity
  ELSE available_count + ?
END
WHERE id = ?`, delta, delta, delta, bookID)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Book{}).Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CategoryDistribution(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Select("COALESCE(categories.name, 'Uncategorized') AS category, COUNT(books.id) AS count").
		Joins("LEFT JOIN categories ON categories.id = books.category_id").
		Group("categories.name").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}
