package enums

import "fmt"

// NotificationCategory groups in-app notifications by the flow that produced them.
type NotificationCategory string

const (
	NotificationCategoryIssue       NotificationCategory = "issue"
	NotificationCategoryReservation NotificationCategory = "reservation"
	NotificationCategorySuggestion  NotificationCategory = "suggestion"
	NotificationCategoryExtension   NotificationCategory = "extension"
	NotificationCategoryFine        NotificationCategory = "fine"
	NotificationCategoryGeneral     NotificationCategory = "general"
)

var validNotificationCategories = []NotificationCategory{
	NotificationCategoryIssue,
	NotificationCategoryReservation,
	NotificationCategorySuggestion,
	NotificationCategoryExtension,
	NotificationCategoryFine,
	NotificationCategoryGeneral,
}

// IsValid reports whether the value is a known NotificationCategory.
func (c NotificationCategory) IsValid() bool {
	for _, candidate := range validNotificationCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseNotificationCategory converts raw input into a NotificationCategory.
func ParseNotificationCategory(value string) (NotificationCategory, error) {
	for _, candidate := range validNotificationCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification category %q", value)
}
