package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kabidey/privity-sub003/pkg/enums"
)

// Client is a read-only directory entry from the engine's perspective.
// ReferralPartnerID links a client who is itself a registered RP; such a
// client can never also earn RP commission on its own bookings.
type Client struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string             `gorm:"column:name;not null"`
	Email             string             `gorm:"column:email;not null;uniqueIndex"`
	Status            enums.ClientStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	IsActive          bool               `gorm:"column:is_active;not null;default:true"`
	ReferralPartnerID *uuid.UUID         `gorm:"column:referral_partner_id;type:uuid"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Bookable reports whether new bookings may reference this client.
func (c *Client) Bookable() bool {
	return c.IsActive && c.Status == enums.ClientStatusApproved
}
