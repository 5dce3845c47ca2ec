package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fine is the single mutable penalty attached to a loan. The amount is always
// derived by recomputation and overwritten in place; only the paid flag is
// toggled independently.
type Fine struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	IssueID   uuid.UUID       `gorm:"column:issue_id;type:uuid;not null;uniqueIndex"`
	Amount    decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	Paid      bool            `gorm:"not null;default:false"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Issue *BookIssue `gorm:"foreignKey:IssueID"`
}
