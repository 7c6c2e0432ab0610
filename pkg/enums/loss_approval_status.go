package enums

import "fmt"

// LossApprovalStatus tracks the loss-booking approval axis. Bookings priced
// at or above cost never enter this flow and stay not_required.
type LossApprovalStatus string

const (
	LossApprovalStatusNotRequired LossApprovalStatus = "not_required"
	LossApprovalStatusPending     LossApprovalStatus = "pending"
	LossApprovalStatusApproved    LossApprovalStatus = "approved"
	LossApprovalStatusRejected    LossApprovalStatus = "rejected"
)

var validLossApprovalStatuses = []LossApprovalStatus{
	LossApprovalStatusNotRequired,
	LossApprovalStatusPending,
	LossApprovalStatusApproved,
	LossApprovalStatusRejected,
}

// String implements fmt.Stringer.
func (l LossApprovalStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LossApprovalStatus.
func (l LossApprovalStatus) IsValid() bool {
	for _, candidate := range validLossApprovalStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// Settled reports whether the axis no longer blocks payment collection.
func (l LossApprovalStatus) Settled() bool {
	return l == LossApprovalStatusNotRequired || l == LossApprovalStatusApproved
}

// ParseLossApprovalStatus converts raw input into a LossApprovalStatus.
func ParseLossApprovalStatus(value string) (LossApprovalStatus, error) {
	for _, candidate := range validLossApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loss approval status %q", value)
}
