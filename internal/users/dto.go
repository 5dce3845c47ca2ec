package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/librarium/librarium-backend/pkg/db/models"
	"github.com/librarium/librarium-backend/pkg/enums"
)

// UserSummary is the outward-facing projection of a user and their profile.
type UserSummary struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        enums.Role `json:"role"`
	RollNumber  *string    `json:"roll_number,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FromModel converts a persisted user into its API projection.
func FromModel(user *models.User) UserSummary {
	summary := UserSummary{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Role:        enums.RoleStudent,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
	if user.Profile != nil {
		summary.Role = user.Profile.Role
		summary.RollNumber = user.Profile.RollNumber
	}
	return summary
}
