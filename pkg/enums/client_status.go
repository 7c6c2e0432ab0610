package enums

import "fmt"

// ClientStatus tracks onboarding state of a client in the directory.
// Only approved clients are bookable.
type ClientStatus string

const (
	ClientStatusPending   ClientStatus = "pending"
	ClientStatusApproved  ClientStatus = "approved"
	ClientStatusSuspended ClientStatus = "suspended"
)

var validClientStatuses = []ClientStatus{
	ClientStatusPending,
	ClientStatusApproved,
	ClientStatusSuspended,
}

// String implements fmt.Stringer.
func (c ClientStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ClientStatus.
func (c ClientStatus) IsValid() bool {
	for _, candidate := range validClientStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseClientStatus converts raw input into a ClientStatus.
func ParseClientStatus(value string) (ClientStatus, error) {
	for _, candidate := range validClientStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid client status %q", value)
}
