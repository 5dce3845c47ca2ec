package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/enums"
)

// AuditLog is an append-only record of a security-relevant action. Username is
// snapshotted so the row survives user deletion.
type AuditLog struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    *uuid.UUID        `gorm:"type:uuid"`
	Username  string            `gorm:"type:text;not null"`
	Action    enums.AuditAction `gorm:"type:text;not null"`
	Details   string            `gorm:"type:text;not null;default:''"`
	IPAddress *string           `gorm:"column:ip_address;type:text"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime;index"`
}
