package enums

import "fmt"

// BookingType classifies who the booking is placed for. Own-account bookings
// trigger the insider compliance flow.
type BookingType string

const (
	BookingTypeClient BookingType = "client"
	BookingTypeTeam   BookingType = "team"
	BookingTypeOwn    BookingType = "own"
)

var validBookingTypes = []BookingType{
	BookingTypeClient,
	BookingTypeTeam,
	BookingTypeOwn,
}

// String implements fmt.Stringer.
func (b BookingType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BookingType.
func (b BookingType) IsValid() bool {
	for _, candidate := range validBookingTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBookingType converts raw input into a BookingType.
func ParseBookingType(value string) (BookingType, error) {
	for _, candidate := range validBookingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking type %q", value)
}
