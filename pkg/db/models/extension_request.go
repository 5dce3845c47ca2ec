package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/enums"
)

// ReturnExtensionRequest is a borrower's petition to push a loan's due date
// forward. PENDING is the only non-terminal state.
type ReturnExtensionRequest struct {
	ID            uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	IssueID       uuid.UUID             `gorm:"column:issue_id;type:uuid;not null;index"`
	UserID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	DaysRequested int                   `gorm:"column:days_requested;not null"`
	Reason        string                `gorm:"type:text;not null"`
	Status        enums.ExtensionStatus `gorm:"type:text;not null;default:'PENDING'"`
	ProcessedBy   *uuid.UUID            `gorm:"column:processed_by;type:uuid"`
	ProcessedAt   *time.Time            `gorm:"column:processed_at"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`

	Issue *BookIssue `gorm:"foreignKey:IssueID"`
	User  *User      `gorm:"foreignKey:UserID"`
}
