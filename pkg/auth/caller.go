package auth

import (
	"github.com/google/uuid"

	"github.com/kabidey/privity-sub003/pkg/enums"
)

// Caller carries the identity and capability gates for one engine call.
// It replaces any ambient session lookup: every engine operation receives
// the caller explicitly and treats the capabilities as opaque booleans.
type Caller struct {
	UserID       uuid.UUID
	Role         enums.MemberRole
	capabilities map[enums.Capability]struct{}
}

// NewCaller builds a caller from an identity and its granted capabilities.
func NewCaller(userID uuid.UUID, role enums.MemberRole, capabilities ...enums.Capability) Caller {
	set := make(map[enums.Capability]struct{}, len(capabilities))
	for _, capability := range capabilities {
		set[capability] = struct{}{}
	}
	return Caller{UserID: userID, Role: role, capabilities: set}
}

// CallerFromClaims converts parsed JWT claims into an engine caller.
func CallerFromClaims(claims *AccessTokenClaims) Caller {
	if claims == nil {
		return Caller{}
	}
	return NewCaller(claims.UserID, claims.Role, claims.Capabilities...)
}

// Can reports whether the caller holds the given capability.
func (c Caller) Can(capability enums.Capability) bool {
	_, ok := c.capabilities[capability]
	return ok
}

// IsBusinessPartner reports whether the caller acts as a BP identity,
// which makes any booking it creates an implicit BP booking.
func (c Caller) IsBusinessPartner() bool {
	return c.Role == enums.MemberRoleBusinessPartner
}

// Capabilities returns the caller's granted capabilities.
func (c Caller) Capabilities() []enums.Capability {
	out := make([]enums.Capability, 0, len(c.capabilities))
	for capability := range c.capabilities {
		out = append(out, capability)
	}
	return out
}
