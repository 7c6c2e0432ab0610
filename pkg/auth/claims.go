package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kabidey/privity-sub003/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	Role         enums.MemberRole
	Capabilities []enums.Capability
	JTI          string
}

// AccessTokenClaims represents the typed JWT issued by the identity service.
type AccessTokenClaims struct {
	UserID       uuid.UUID          `json:"user_id"`
	Role         enums.MemberRole   `json:"role"`
	Capabilities []enums.Capability `json:"capabilities,omitempty"`
	jwt.RegisteredClaims
}
