package enums

import "fmt"

// BpOverrideStatus tracks the business-partner revenue-share override axis.
// Only BP bookings ever leave the none state.
type BpOverrideStatus string

const (
	BpOverrideStatusNone     BpOverrideStatus = "none"
	BpOverrideStatusPending  BpOverrideStatus = "pending"
	BpOverrideStatusApproved BpOverrideStatus = "approved"
	BpOverrideStatusRejected BpOverrideStatus = "rejected"
)

var validBpOverrideStatuses = []BpOverrideStatus{
	BpOverrideStatusNone,
	BpOverrideStatusPending,
	BpOverrideStatusApproved,
	BpOverrideStatusRejected,
}

// String implements fmt.Stringer.
func (b BpOverrideStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BpOverrideStatus.
func (b BpOverrideStatus) IsValid() bool {
	for _, candidate := range validBpOverrideStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBpOverrideStatus converts raw input into a BpOverrideStatus.
func ParseBpOverrideStatus(value string) (BpOverrideStatus, error) {
	for _, candidate := range validBpOverrideStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bp override status %q", value)
}
