package models

import (
	"time"

	"github.com/google/uuid"
)

// Author of one or more catalogued books.
type Author struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null;uniqueIndex"`
	Bio       string    `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Category groups books by subject.
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Book is a catalogued title. AvailableCount is bounded by Quantity at all
// times; writes that would exceed the bound clamp instead of failing.
type Book struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ISBN           string     `gorm:"column:isbn;type:text;not null;uniqueIndex"`
	Title          string     `gorm:"type:text;not null"`
	AuthorID       uuid.UUID  `gorm:"type:uuid;not null"`
	CategoryID     *uuid.UUID `gorm:"type:uuid"`
	Quantity       int        `gorm:"not null;default:1"`
	AvailableCount int        `gorm:"column:available_count;not null;default:1"`
	Description    string     `gorm:"type:text;not null;default:''"`
	PublishedYear  *int       `gorm:"column:published_year"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Author   *Author   `gorm:"foreignKey:AuthorID"`
	Category *Category `gorm:"foreignKey:CategoryID"`
}

// IsAvailable reports whether at least one copy can be issued right now.
func (b *Book) IsAvailable() bool {
	return b.AvailableCount > 0
}
