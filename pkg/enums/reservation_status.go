package enums

import "fmt"

// ReservationStatus tracks a queued hold on an unavailable book.
type ReservationStatus string

const (
	ReservationStatusQueued    ReservationStatus = "QUEUED"
	ReservationStatusApproved  ReservationStatus = "APPROVED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusQueued,
	ReservationStatusApproved,
	ReservationStatusCancelled,
	ReservationStatusExpired,
}

// ActiveReservationStatuses are the statuses that hold a place in the queue.
var ActiveReservationStatuses = []ReservationStatus{
	ReservationStatusQueued,
	ReservationStatusApproved,
}

// String implements fmt.Stringer.
func (s ReservationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReservationStatus.
func (s ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the reservation still holds a queue slot.
func (s ReservationStatus) IsActive() bool {
	return s == ReservationStatusQueued || s == ReservationStatusApproved
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
