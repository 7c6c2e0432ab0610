package enums

import "fmt"

// Capability is an opaque boolean gate supplied by the caller's identity.
// The engine never derives capabilities itself; it only checks them.
type Capability string

const (
	CapabilityApproveBookings        Capability = "approve_bookings"
	CapabilityApproveLossBookings    Capability = "approve_loss_bookings"
	CapabilityVoidBookings           Capability = "void_bookings"
	CapabilityDeleteBookings         Capability = "delete_bookings"
	CapabilityDeletePayments         Capability = "delete_payments"
	CapabilityManageRpMapping        Capability = "manage_rp_mapping"
	CapabilityProposeRevenueOverride Capability = "propose_revenue_override"
	CapabilityApproveRevenueOverride Capability = "approve_revenue_override"
	CapabilityEditLandingPrice       Capability = "edit_landing_price"
	CapabilityEditBuyingPrice        Capability = "edit_buying_price"
)

var validCapabilities = []Capability{
	CapabilityApproveBookings,
	CapabilityApproveLossBookings,
	CapabilityVoidBookings,
	CapabilityDeleteBookings,
	CapabilityDeletePayments,
	CapabilityManageRpMapping,
	CapabilityProposeRevenueOverride,
	CapabilityApproveRevenueOverride,
	CapabilityEditLandingPrice,
	CapabilityEditBuyingPrice,
}

// String implements fmt.Stringer.
func (c Capability) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Capability.
func (c Capability) IsValid() bool {
	for _, candidate := range validCapabilities {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCapability converts raw input into a Capability.
func ParseCapability(value string) (Capability, error) {
	for _, candidate := range validCapabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid capability %q", value)
}
