package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/enums"
)

// Review is a reader's moderated rating of a book. Each user holds at most
// one review per book; resubmitting rewrites the row and returns it to
// PENDING for another moderation pass.
type Review struct {
	ID        uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_book_user"`
	UserID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_book_user;index"`
	Rating    int                `gorm:"not null"`
	Text      string             `gorm:"type:text;not null;default:''"`
	Status    enums.ReviewStatus `gorm:"type:text;not null;default:'PENDING'"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	Book *Book `gorm:"foreignKey:BookID"`
	User *User `gorm:"foreignKey:UserID"`
}
