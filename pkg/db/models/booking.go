package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kabidey/privity-sub003/pkg/enums"
)

// Booking is the central settlement entity. Commercial terms freeze once the
// booking is approved; the record survives voiding for audit and is never
// hard-deleted after the stock transfer completes.
type Booking struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingNumber int64     `gorm:"column:booking_number;not null;uniqueIndex"`

	ClientID    uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index"`
	StockID     uuid.UUID         `gorm:"column:stock_id;type:uuid;not null;index"`
	CreatedByID uuid.UUID         `gorm:"column:created_by_id;type:uuid;not null"`
	BookingType enums.BookingType `gorm:"column:booking_type;type:text;not null;default:'client'"`

	Quantity int64 `gorm:"column:quantity;not null"`
	// BuyingPrice is the effective landing cost resolved at reservation time.
	BuyingPrice             decimal.Decimal  `gorm:"column:buying_price;type:numeric(18,4);not null"`
	LandingPriceAtReserve   decimal.Decimal  `gorm:"column:landing_price_at_reserve;type:numeric(18,4);not null"`
	SellingPrice            *decimal.Decimal `gorm:"column:selling_price;type:numeric(18,4)"`
	BookingDate             time.Time        `gorm:"column:booking_date;not null"`

	ApprovalStatus           enums.ApprovalStatus           `gorm:"column:approval_status;type:text;not null;default:'pending'"`
	LossApprovalStatus       enums.LossApprovalStatus       `gorm:"column:loss_approval_status;type:text;not null;default:'not_required'"`
	ClientConfirmationStatus enums.ClientConfirmationStatus `gorm:"column:client_confirmation_status;type:text;not null;default:'pending'"`

	IsVoided           bool       `gorm:"column:is_voided;not null;default:false"`
	VoidReason         *string    `gorm:"column:void_reason"`
	VoidedAt           *time.Time `gorm:"column:voided_at"`
	StockTransferred   bool       `gorm:"column:stock_transferred;not null;default:false"`
	StockTransferredAt *time.Time `gorm:"column:stock_transferred_at"`
	DpTransferReady    bool       `gorm:"column:dp_transfer_ready;not null;default:false"`

	ReferralPartnerID     *uuid.UUID       `gorm:"column:referral_partner_id;type:uuid"`
	RpRevenueSharePercent *decimal.Decimal `gorm:"column:rp_revenue_share_percent;type:numeric(7,4)"`

	IsBpBooking         bool                   `gorm:"column:is_bp_booking;not null;default:false"`
	BpSharePercent      *decimal.Decimal       `gorm:"column:bp_share_percent;type:numeric(7,4)"`
	BpOverridePercent   *decimal.Decimal       `gorm:"column:bp_override_percent;type:numeric(7,4)"`
	BpOverrideStatus    enums.BpOverrideStatus `gorm:"column:bp_override_status;type:text;not null;default:'none'"`
	BpOverrideReason    *string                `gorm:"column:bp_override_reason"`
	BpOverrideDecidedAt *time.Time             `gorm:"column:bp_override_decided_at"`

	InsiderAcknowledged  bool    `gorm:"column:insider_acknowledged;not null;default:false"`
	InsiderFormRequired  bool    `gorm:"column:insider_form_required;not null;default:false"`
	InsiderFormURL       *string `gorm:"column:insider_form_url"`

	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	TotalPaid     decimal.Decimal     `gorm:"column:total_paid;type:numeric(18,4);not null;default:0"`
	// TrancheSeq counts tranches ever recorded so numbers are never reused,
	// even after an authorized delete.
	TrancheSeq int `gorm:"column:tranche_seq;not null;default:0"`

	Notes *string `gorm:"column:notes"`

	ApprovedAt        *time.Time `gorm:"column:approved_at"`
	LossDecidedAt     *time.Time `gorm:"column:loss_decided_at"`
	ClientConfirmedAt *time.Time `gorm:"column:client_confirmed_at"`

	// LockVersion guards every state-changing write with an optimistic
	// version check; a stale writer sees zero rows affected.
	LockVersion int64 `gorm:"column:lock_version;not null;default:0"`

	Payments []PaymentTranche `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsLossBooking reports whether the quoted selling price sits below cost.
func (b *Booking) IsLossBooking() bool {
	if b.SellingPrice == nil {
		return false
	}
	return b.SellingPrice.LessThan(b.BuyingPrice)
}

// TotalAmount returns selling_price × quantity, or zero when unquoted.
func (b *Booking) TotalAmount() decimal.Decimal {
	if b.SellingPrice == nil {
		return decimal.Zero
	}
	return b.SellingPrice.Mul(decimal.NewFromInt(b.Quantity))
}

// CommerciallyActive reports whether both PE approval and loss approval have
// cleared and the booking is not voided.
func (b *Booking) CommerciallyActive() bool {
	return !b.IsVoided &&
		b.ApprovalStatus == enums.ApprovalStatusApproved &&
		b.LossApprovalStatus.Settled()
}
