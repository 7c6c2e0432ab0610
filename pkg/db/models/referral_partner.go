package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferralPartner earns a revenue share for sourcing a client. Attachment to
// a booking happens only at creation; later remapping is a privileged edit.
type ReferralPartner struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string          `gorm:"column:name;not null"`
	Email               string          `gorm:"column:email;not null;uniqueIndex"`
	DefaultSharePercent decimal.Decimal `gorm:"column:default_share_percent;type:numeric(7,4);not null;default:0"`
	IsActive            bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
