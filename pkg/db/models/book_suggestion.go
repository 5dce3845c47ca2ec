package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/enums"
)

// BookSuggestion is a student-proposed addition to the catalog.
type BookSuggestion struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string                 `gorm:"type:text;not null"`
	Author    string                 `gorm:"type:text;not null"`
	Category  string                 `gorm:"type:text;not null"`
	Reason    string                 `gorm:"type:text;not null"`
	Status    enums.SuggestionStatus `gorm:"type:text;not null;default:'PENDING'"`
	CreatedBy uuid.UUID              `gorm:"column:created_by;type:uuid;not null;index"`
	AdminNote string                 `gorm:"column:admin_note;type:text;not null;default:''"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
