package models

import (
	"time"

	"github.com/google/uuid"
)

// Setting is a flat key/value configuration row with a declared value type.
type Setting struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Key       string    `gorm:"type:text;not null;uniqueIndex"`
	Value     string    `gorm:"type:text;not null"`
	ValueType string    `gorm:"column:value_type;type:text;not null;default:'str'"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
