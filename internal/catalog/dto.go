package catalog

import (
	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/db/models"
)

// CreateBookRequest is the payload for adding a title to the catalog.
type CreateBookRequest struct {
	ISBN          string     `json:"isbn" validate:"required"`
	Title         string     `json:"title" validate:"required"`
	AuthorID      uuid.UUID  `json:"author_id" validate:"required"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	Quantity      int        `json:"quantity" validate:"required,min=1"`
	Description   string     `json:"description,omitempty"`
	PublishedYear *int       `json:"published_year,omitempty"`
}

// UpdateBookRequest carries the editable book fields.
type UpdateBookRequest struct {
	ISBN          string     `json:"isbn" validate:"required"`
	Title         string     `json:"title" validate:"required"`
	AuthorID      uuid.UUID  `json:"author_id" validate:"required"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	Quantity      int        `json:"quantity" validate:"required,min=1"`
	Description   string     `json:"description,omitempty"`
	PublishedYear *int       `json:"published_year,omitempty"`
}

// CreateAuthorRequest is the payload for registering an author.
type CreateAuthorRequest struct {
	Name string `json:"name" validate:"required"`
	Bio  string `json:"bio,omitempty"`
}

// CreateCategoryRequest is the payload for registering a category.
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

// ListBooksParams filters and paginates the catalog listing.
type ListBooksParams struct {
	Search        string
	CategoryID    *uuid.UUID
	AuthorID      *uuid.UUID
	AvailableOnly bool
	Limit         int
	Cursor        string
}

// BookPage wraps one page of books plus the cursor for the next page.
type BookPage struct {
	Items  []models.Book `json:"items"`
	Cursor string        `json:"cursor"`
}
