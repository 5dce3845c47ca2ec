package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/enums"
)

// BookIssue is a loan of one copy of a book to a borrower. Status moves
// REQUESTED -> ISSUED -> RETURNED, or REQUESTED -> REJECTED; RETURNED and
// REJECTED are terminal.
type BookIssue struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	BookID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	Status     enums.IssueStatus `gorm:"type:text;not null;default:'REQUESTED'"`
	IssueDate  *time.Time        `gorm:"column:issue_date;type:date"`
	DueDate    *time.Time        `gorm:"column:due_date;type:date"`
	ReturnDate *time.Time        `gorm:"column:return_date;type:date"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID"`
	Book *Book `gorm:"foreignKey:BookID"`
}

// IsOverdue reports whether the loan is issued and past its due date.
func (i *BookIssue) IsOverdue(now time.Time) bool {
	if i.Status != enums.IssueStatusIssued || i.DueDate == nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return i.DueDate.Before(today)
}
