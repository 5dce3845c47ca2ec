package enums

import "fmt"

// ExtensionStatus tracks a due-date extension request.
type ExtensionStatus string

const (
	ExtensionStatusPending  ExtensionStatus = "PENDING"
	ExtensionStatusApproved ExtensionStatus = "APPROVED"
	ExtensionStatusRejected ExtensionStatus = "REJECTED"
)

var validExtensionStatuses = []ExtensionStatus{
	ExtensionStatusPending,
	ExtensionStatusApproved,
	ExtensionStatusRejected,
}

// String implements fmt.Stringer.
func (s ExtensionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ExtensionStatus.
func (s ExtensionStatus) IsValid() bool {
	for _, candidate := range validExtensionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseExtensionStatus converts raw input into an ExtensionStatus.
func ParseExtensionStatus(value string) (ExtensionStatus, error) {
	for _, candidate := range validExtensionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid extension status %q", value)
}
