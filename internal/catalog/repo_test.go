package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/librarium/librarium-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	authors := `
CREATE TABLE IF NOT EXISTS authors (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  bio TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`
	categories := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  created_at DATETIME
);`
	books := `
CREATE TABLE IF NOT EXISTS books (
  id TEXT PRIMARY KEY,
  isbn TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  author_id TEXT NOT NULL,
  category_id TEXT,
  quantity INTEGER NOT NULL DEFAULT 1,
  available_count INTEGER NOT NULL DEFAULT 1,
  description TEXT NOT NULL DEFAULT '',
  published_year INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(authors).Error)
	require.NoError(t, db.Exec(categories).Error)
	require.NoError(t, db.Exec(books).Error)
	return db
}

func newAuthor(t *testing.T, db *gorm.DB, name string) *models.Author {
	t.Helper()
	author := &models.Author{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(author).Error)
	return author
}

func newBook(t *testing.T, db *gorm.DB, author *models.Author, isbn string, quantity, available int) *models.Book {
	t.Helper()
	book := &models.Book{
		ID:             uuid.New(),
		ISBN:           isbn,
		Title:          "Title " + isbn,
		AuthorID:       author.ID,
		Quantity:       quantity,
		AvailableCount: available,
	}
	require.NoError(t, db.Create(book).Error)
	// The model's default:1 tag makes gorm skip a zero AvailableCount on
	// insert, so force the column to the requested value.
	require.NoError(t, db.Model(book).UpdateColumn("available_count", available).Error)
	return book
}

func TestRepositoryAdjustAvailabilityClampsBothBounds(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	author := newAuthor(t, db, "Author A")
	book := newBook(t, db, author, "isbn-1", 3, 1)

	rows, err := repo.AdjustAvailability(ctx, book.ID, -5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	loaded, err := repo.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.AvailableCount, "decrement clamps at zero")

	_, err = repo.AdjustAvailability(ctx, book.ID, 10)
	require.NoError(t, err)

	loaded, err = repo.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.AvailableCount, "increment clamps at quantity")
}

func TestRepositoryTakeCopy(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	author := newAuthor(t, db, "Author B")
	book := newBook(t, db, author, "isbn-2", 2, 1)

	taken, err := repo.TakeCopy(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.TakeCopy(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, taken, "no copies left")

	loaded, err := repo.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.AvailableCount)
}

func TestRepositoryUpdateBookReclampsAvailability(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	author := newAuthor(t, db, "Author C")
	book := newBook(t, db, author, "isbn-3", 5, 5)

	book.Quantity = 2
	require.NoError(t, repo.UpdateBook(ctx, book))

	loaded, err := repo.FindBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Quantity)
	assert.Equal(t, 2, loaded.AvailableCount, "available count shrinks with quantity")
}

func TestRepositoryListBooksFiltersAndPaginates(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	author := newAuthor(t, db, "Author D")
	newBook(t, db, author, "isbn-aa", 1, 1)
	newBook(t, db, author, "isbn-bb", 1, 0)
	newBook(t, db, author, "isbn-cc", 1, 1)

	all, _, err := repo.ListBooks(ctx, listBooksParams{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	available, _, err := repo.ListBooks(ctx, listBooksParams{Limit: 10, AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	matched, _, err := repo.ListBooks(ctx, listBooksParams{Limit: 10, Search: "isbn-bb"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "isbn-bb", matched[0].ISBN)

	firstPage, cursor, err := repo.ListBooks(ctx, listBooksParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, firstPage, 2)
	assert.NotNil(t, cursor)
}

func TestRepositoryCategoryDistribution(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	author := newAuthor(t, db, "Author E")
	fiction := &models.Category{ID: uuid.New(), Name: "Fiction"}
	require.NoError(t, db.Create(fiction).Error)

	for _, isbn := range []string{"isbn-f1", "isbn-f2"} {
		book := newBook(t, db, author, isbn, 1, 1)
		require.NoError(t, db.Model(&models.Book{}).Where("id = ?", book.ID).UpdateColumn("category_id", fiction.ID).Error)
	}
	newBook(t, db, author, "isbn-u1", 1, 1)

	rows, err := repo.CategoryDistribution(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Fiction", rows[0].Category)
	assert.EqualValues(t, 2, rows[0].Count)
	assert.Equal(t, "Uncategorized", rows[1].Category)
	assert.EqualValues(t, 1, rows[1].Count)
}
