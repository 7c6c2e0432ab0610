package enums

import "fmt"

// ClientConfirmationStatus tracks the client-driven confirmation axis of a
// booking. A denied booking is surfaced, never auto-voided.
type ClientConfirmationStatus string

const (
	ClientConfirmationPending  ClientConfirmationStatus = "pending"
	ClientConfirmationAccepted ClientConfirmationStatus = "accepted"
	ClientConfirmationDenied   ClientConfirmationStatus = "denied"
)

var validClientConfirmationStatuses = []ClientConfirmationStatus{
	ClientConfirmationPending,
	ClientConfirmationAccepted,
	ClientConfirmationDenied,
}

// String implements fmt.Stringer.
func (c ClientConfirmationStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ClientConfirmationStatus.
func (c ClientConfirmationStatus) IsValid() bool {
	for _, candidate := range validClientConfirmationStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseClientConfirmationStatus converts raw input into a ClientConfirmationStatus.
func ParseClientConfirmationStatus(value string) (ClientConfirmationStatus, error) {
	for _, candidate := range validClientConfirmationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid client confirmation status %q", value)
}
