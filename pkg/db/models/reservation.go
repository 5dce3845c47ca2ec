package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/enums"
)

// Reservation is a queued hold on a book that has no loanable copies. Position
// is 1-based and kept dense within the QUEUED set of a book; at most one
// active (QUEUED or APPROVED) reservation exists per (book, user) pair.
type Reservation struct {
	ID         uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookID     uuid.UUID               `gorm:"type:uuid;not null;index"`
	UserID     uuid.UUID               `gorm:"type:uuid;not null;index"`
	Status     enums.ReservationStatus `gorm:"type:text;not null;default:'QUEUED'"`
	Position   int                     `gorm:"not null;default:1"`
	ExpiresAt  *time.Time              `gorm:"column:expires_at"`
	ApprovedAt *time.Time              `gorm:"column:approved_at"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`

	Book *Book `gorm:"foreignKey:BookID"`
	User *User `gorm:"foreignKey:UserID"`
}

// IsActive reports whether the reservation still holds a queue slot.
func (r *Reservation) IsActive() bool {
	return r.Status.IsActive()
}
