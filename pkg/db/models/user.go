package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	Username     string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Profile *Profile `gorm:"foreignKey:UserID"`
}

// Profile carries the library-specific attributes of a user. It is created in
// the same transaction as the User row, never by a decoupled hook.
type Profile struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	Role       enums.Role `gorm:"type:text;not null;default:'STUDENT'"`
	RollNumber *string    `gorm:"column:roll_number"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
