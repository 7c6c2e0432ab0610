package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kabidey/privity-sub003/pkg/enums"
)

// Notification stores in-app notification payloads addressed to a desk role.
type Notification struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientRole enums.MemberRole       `gorm:"column:recipient_role;type:text;not null"`
	BookingID     *uuid.UUID             `gorm:"column:booking_id;type:uuid;index"`
	Type          enums.NotificationType `gorm:"type:notification_type;not null"`
	Title         string                 `gorm:"type:text;not null"`
	Message       string                 `gorm:"type:text;not null"`
	Link          *string                `gorm:"type:text"`
	ReadAt        *time.Time             `gorm:"type:timestamptz"`
	CreatedAt     time.Time              `gorm:"type:timestamptz;default:now()"`
}
