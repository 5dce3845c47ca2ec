package auth

import (
	"github.com/librarium/librarium-backend/internal/users"
)

// RegisterRequest creates a new student account with its profile.
type RegisterRequest struct {
	Email      string  `json:"email" validate:"required,email"`
	Username   string  `json:"username" validate:"required,min=3"`
	Password   string  `json:"password" validate:"required,min=8"`
	RollNumber *string `json:"roll_number,omitempty"`
}

// LoginRequest authenticates by username or email plus password.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// LoginResponse carries the token pair and the authenticated user.
type LoginResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	User         users.UserSummary `json:"user"`
}

// RefreshRequest rotates an expiring session.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the replacement token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
