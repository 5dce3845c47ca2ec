package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db"
	"github.com/librarium/librarium-backend/pkg/db/models"
	pkgerrors "github.com/librarium/librarium-backend/pkg/errors"
	"github.com/librarium/librarium-backend/pkg/pagination"
)

// Service exposes catalog management operations.
type Service interface {
	CreateBook(ctx context.Context, req CreateBookRequest) (*models.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	ListBooks(ctx context.Context, params ListBooksParams) (*BookPage, error)
	UpdateBook(ctx context.Context, id uuid.UUID, req UpdateBookRequest) (*models.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error

	CreateAuthor(ctx context.Context, req CreateAuthorRequest) (*models.Author, error)
	ListAuthors(ctx context.Context) ([]models.Author, error)
	DeleteAuthor(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService wires catalog dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateBook(ctx context.Context, req CreateBookRequest) (*models.Book, error) {
	isbn := strings.TrimSpace(req.ISBN)
	if isbn == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "isbn is required")
	}
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	if _, err := s.repo.FindAuthor(ctx, req.AuthorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "author not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check author")
	}
	if req.CategoryID != nil {
		if _, err := s.repo.FindCategory(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category")
		}
	}

	if _, err := s.repo.FindBookByISBN(ctx, isbn); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "isbn already catalogued")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check isbn")
	}

	book := &models.Book{
		ISBN:           isbn,
		Title:          strings.TrimSpace(req.Title),
		AuthorID:       req.AuthorID,
		CategoryID:     req.CategoryID,
		Quantity:       req.Quantity,
		AvailableCount: req.Quantity,
		Description:    req.Description,
		PublishedYear:  req.PublishedYear,
	}
	if err := s.repo.CreateBook(ctx, book); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "isbn already catalogued")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create book")
	}
	return book, nil
}

func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.repo.FindBook(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	return book, nil
}

func (s *service) ListBooks(ctx context.Context, params ListBooksParams) (*BookPage, error) {
	query := listBooksParams{
		Search:        strings.TrimSpace(params.Search),
		CategoryID:    params.CategoryID,
		AuthorID:      params.AuthorID,
		AvailableOnly: params.AvailableOnly,
		Limit:         params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	books, next, err := s.repo.ListBooks(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &BookPage{Items: books, Cursor: cursor}, nil
}

func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, req UpdateBookRequest) (*models.Book, error) {
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	existing, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	isbn := strings.TrimSpace(req.ISBN)
	if isbn != existing.ISBN {
		if _, err := s.repo.FindBookByISBN(ctx, isbn); err == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "isbn already catalogued")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check isbn")
		}
	}

	existing.ISBN = isbn
	existing.Title = strings.TrimSpace(req.Title)
	existing.AuthorID = req.AuthorID
	existing.CategoryID = req.CategoryID
	existing.Quantity = req.Quantity
	existing.Description = req.Description
	existing.PublishedYear = req.PublishedYear

	if err := s.repo.UpdateBook(ctx, existing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update book")
	}
	return s.GetBook(ctx, id)
}

func (s *service) DeleteBook(ctx context.Context, id uuid.UUID) error {
	rows, err := s.repo.DeleteBook(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete book")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
	}
	return nil
}

func (s *service) CreateAuthor(ctx context.Context, req CreateAuthorRequest) (*models.Author, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author name is required")
	}
	author := &models.Author{Name: name, Bio: req.Bio}
	if err := s.repo.CreateAuthor(ctx, author); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "author already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create author")
	}
	return author, nil
}

func (s *service) ListAuthors(ctx context.Context) ([]models.Author, error) {
	authors, err := s.repo.ListAuthors(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list authors")
	}
	return authors, nil
}

func (s *service) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	rows, err := s.repo.DeleteAuthor(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete author")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "author not found")
	}
	return nil
}

func (s *service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	category := &models.Category{Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return category, nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	rows, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}
