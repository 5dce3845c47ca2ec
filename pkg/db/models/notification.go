package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to a user.
type Notification struct {
	ID        uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Message   string                     `gorm:"type:text;not null"`
	TargetURL string                     `gorm:"column:target_url;type:text;not null;default:''"`
	Category  enums.NotificationCategory `gorm:"type:text;not null;default:'general'"`
	ReadAt    *time.Time                 `gorm:"column:read_at"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

// IsRead reports whether the notification has been acknowledged.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
