package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentTranche is one partial payment against a booking. Tranches are
// immutable once recorded; the only mutation path is the audited delete,
// which never renumbers surviving tranches.
type PaymentTranche struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID     uuid.UUID       `gorm:"column:booking_id;type:uuid;not null;index"`
	TrancheNumber int             `gorm:"column:tranche_number;not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(18,4);not null"`
	PaymentDate   time.Time       `gorm:"column:payment_date;not null"`
	ProofURL      *string         `gorm:"column:proof_url"`
	Notes         *string         `gorm:"column:notes"`
	RecordedByID  uuid.UUID       `gorm:"column:recorded_by_id;type:uuid;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
