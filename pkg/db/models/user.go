package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kabidey/privity-sub003/pkg/enums"
)

// User represents the canonical identity entity. Credentials live with the
// identity service; this table only carries what the engine reads.
type User struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string           `gorm:"type:text;not null;uniqueIndex"`
	FirstName string           `gorm:"column:first_name;not null"`
	LastName  string           `gorm:"column:last_name;not null"`
	Role      enums.MemberRole `gorm:"column:role;type:text;not null;default:'employee'"`
	IsActive  bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
