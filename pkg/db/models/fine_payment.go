package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librarium/librarium-backend/pkg/enums"
)

// FinePayment records a settlement against a fine. There is no external
// gateway; payments are recorded as PAID at creation time.
type FinePayment struct {
	ID        uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FineID    uuid.UUID           `gorm:"column:fine_id;type:uuid;not null;index"`
	UserID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal     `gorm:"type:numeric(8,2);not null"`
	Mode      string              `gorm:"type:text;not null;default:'Simulated'"`
	Reference string              `gorm:"type:text;not null"`
	Status    enums.PaymentStatus `gorm:"type:text;not null;default:'PENDING'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`

	Fine *Fine `gorm:"foreignKey:FineID"`
	User *User `gorm:"foreignKey:UserID"`
}
