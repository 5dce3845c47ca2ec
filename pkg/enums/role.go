package enums

import "fmt"

// Role represents the permission level attached to a user profile.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleStudent Role = "STUDENT"
)

var validRoles = []Role{
	RoleOwner,
	RoleAdmin,
	RoleStudent,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role carries librarian privileges.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleOwner
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
