package enums

import "fmt"

// SuggestionStatus tracks a student book suggestion through review.
type SuggestionStatus string

const (
	SuggestionStatusPending  SuggestionStatus = "PENDING"
	SuggestionStatusApproved SuggestionStatus = "APPROVED"
	SuggestionStatusRejected SuggestionStatus = "REJECTED"
	SuggestionStatusAdded    SuggestionStatus = "ADDED"
)

var validSuggestionStatuses = []SuggestionStatus{
	SuggestionStatusPending,
	SuggestionStatusApproved,
	SuggestionStatusRejected,
	SuggestionStatusAdded,
}

// String implements fmt.Stringer.
func (s SuggestionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SuggestionStatus.
func (s SuggestionStatus) IsValid() bool {
	for _, candidate := range validSuggestionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSuggestionStatus converts raw input into a SuggestionStatus.
func ParseSuggestionStatus(value string) (SuggestionStatus, error) {
	for _, candidate := range validSuggestionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid suggestion status %q", value)
}
